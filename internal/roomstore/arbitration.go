package roomstore

import (
	"time"

	"github.com/CrowdSynth/coordinator/internal/types"
)

// UpdateAfterArbitration assigns the arbitrator's result onto the room,
// clamping bpm/density/brightness and renormalising prompt weights. It does
// not clear current_inputs — the tick loop does that once broadcast is
// complete.
func (r *Room) UpdateAfterArbitration(result types.ArbitrationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.BPM = clampInt(result.BPM, minBPM, maxBPM)
	r.Density = clampFloat(result.Density, 0, 1)
	r.Brightness = clampFloat(result.Brightness, 0, 1)
	r.ActivePrompts = normalizePromptWeights(result.Prompts)
	r.InfluenceWeights = computeInfluenceWeights(r.CurrentInputs, time.Now())
}

// ApplyApplauseLocked applies the HIGH/MID/LOW applause-zone adjustment
// rules to density and brightness. Caller must hold r.mu.
func (r *Room) ApplyApplauseLocked(zone string, intensity float64) {
	switch zone {
	case "HIGH":
		r.Density = clampFloat(r.Density+0.10+0.10*intensity, 0, 1)
		r.Brightness = clampFloat(r.Brightness+0.06+0.06*intensity, 0, 1)
	case "LOW":
		r.Density = clampFloat(r.Density-0.07, 0.05, 1)
		r.Brightness = clampFloat(r.Brightness-0.04, 0.05, 1)
	default: // MID
		r.Density = clampFloat(0.85*r.Density+0.15*intensity, 0, 1)
		r.Brightness = clampFloat(0.90*r.Brightness+0.10*intensity, 0, 1)
	}
}

// Lock and Unlock expose the room mutex to callers (the gateway's applause
// handler) that must read-modify-write density/brightness and read the
// first active prompt in one critical section; the handler releases the
// lock before its audio-session overlay push.
func (r *Room) Lock()   { r.mu.Lock() }
func (r *Room) Unlock() { r.mu.Unlock() }

// FirstBasePromptLocked returns the text of the first active prompt, the
// base the applause overlay prepends to. Caller must hold r.mu.
func (r *Room) FirstBasePromptLocked() string {
	if len(r.ActivePrompts) == 0 {
		return seedPromptText
	}
	return r.ActivePrompts[0].Text
}

// BPMLocked returns the room's current bpm. Caller must hold r.mu.
func (r *Room) BPMLocked() int { return r.BPM }

// DensityBrightnessLocked returns the room's current density and
// brightness. Caller must hold r.mu.
func (r *Room) DensityBrightnessLocked() (float64, float64) {
	return r.Density, r.Brightness
}
