package gateway

import (
	"context"
	"encoding/json"
	"math"

	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	applauseHighThreshold = 0.55
	applauseLowThreshold  = 0.25
)

// applauseZone maps raw crowd-noise volume and clap rate to a smoothed
// intensity and a HIGH/MID/LOW zone. Deliberately pure so the zone and
// intensity of equal inputs are always identical, regardless of room state.
func applauseZone(volume, clapRate float64) (intensity float64, zone string) {
	volSignal := math.Sqrt(math.Max(volume, 0))
	intensity = 0.5*volSignal + 0.5*clapRate

	switch {
	case intensity > applauseHighThreshold:
		zone = "HIGH"
	case intensity < applauseLowThreshold:
		zone = "LOW"
	default:
		zone = "MID"
	}
	return intensity, zone
}

func applauseOverlayText(zone string) string {
	if zone == "HIGH" {
		return "triumphant crowd roar, soaring energy"
	}
	return "crowd falling quiet, hushed and sparse"
}

func overlayWeight(intensity float64, zone string) float64 {
	if zone == "HIGH" {
		return clampFloat(0.3+0.3*intensity, 0.3, 0.6)
	}
	return clampFloat(0.2+0.2*(1-intensity), 0.2, 0.4)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (h *Hub) handleApplauseUpdate(ctx context.Context, c *Client, msg *types.InboundMessage) {
	if !h.limiter.AllowApplauseUpdate(ctx, string(c.connectionID)) {
		return
	}

	var payload types.ApplausePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendJSON(ctx, newError("malformed applause_update payload"))
		return
	}

	room, ok := h.roomFor(ctx, c, msg)
	if !ok {
		return
	}

	intensity, zone := applauseZone(payload.Volume, payload.ClapRate)

	room.Lock()
	room.ApplyApplauseLocked(zone, intensity)
	density, _ := room.DensityBrightnessLocked()
	basePrompt := room.FirstBasePromptLocked()
	playing := room.IsPlaying
	room.Unlock()

	if playing && zone != "MID" {
		overlay := types.WeightedPrompt{Text: applauseOverlayText(zone), Weight: overlayWeight(intensity, zone)}
		h.audio.OverlayApplausePrompt(ctx, room.ID, overlay, basePrompt)
	}

	h.broadcastJSON(ctx, room.ID, applauseLevelMessage{
		Type:      types.MsgApplauseLevel,
		Volume:    payload.Volume,
		ClapRate:  payload.ClapRate,
		Intensity: intensity,
		Density:   density,
		Zone:      zone,
		Loud:      zone == "HIGH",
	})
}
