package gateway

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/CrowdSynth/coordinator/internal/roomstore"
	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	dropTargetBPMCap = 160
	dropBPMBoost     = 20
)

// dropDelayBeforePush and dropWindowExpiry are vars, not consts, so tests
// can shrink them instead of sleeping out the real 3s/10s windows.
var (
	dropDelayBeforePush = 3 * time.Second
	dropWindowExpiry    = 10 * time.Second
)

// dropPrompts are the fixed pair pushed upstream dropDelayBeforePush after
// a drop quorum is reached.
var dropPrompts = []types.WeightedPrompt{
	{Text: "massive festival drop, huge bass, euphoric crowd energy", Weight: 0.7},
	{Text: "rising tension building to impact", Weight: 0.3},
}

func (h *Hub) handleDrop(ctx context.Context, c *Client, msg *types.InboundMessage) {
	room, ok := h.roomFor(ctx, c, msg)
	if !ok {
		return
	}

	outcome, count, needed := room.RecordDrop(c.connectionID)
	metrics.DropEvents.WithLabelValues(outcome.String()).Inc()

	switch outcome {
	case roomstore.DropAlreadyVoted:
		c.sendJSON(ctx, dropAlreadyVotedMessage{Type: types.MsgDropAlreadyVoted, Count: count, Needed: needed})

	case roomstore.DropRegistered:
		h.broadcastJSON(ctx, room.ID, dropProgressMessage{Type: types.MsgDropProgress, Count: count, Needed: needed})
		if count == 1 {
			if windowStart, open := room.DropWindowStart(); open {
				go h.expireDropWindow(room, windowStart, needed)
			}
		}

	case roomstore.DropTriggered:
		h.broadcastJSON(ctx, room.ID, dropIncomingMessage{Type: types.MsgDropIncoming, InSeconds: 3, Count: count, Needed: needed})
		go h.triggerDropAfterDelay(room)
	}
}

// triggerDropAfterDelay fires 3 seconds after a drop quorum is reached: it
// pushes the fixed drop prompts upstream (independent of success) and
// broadcasts drop_triggered, both at the same delayed instant — not at the
// moment the quorum was reached.
func (h *Hub) triggerDropAfterDelay(room *roomstore.Room) {
	time.Sleep(dropDelayBeforePush)
	if room.Destroyed() {
		return
	}

	ctx := context.Background()

	if room.IsPlayingNow() {
		bpm, _, _ := room.Snapshot()
		targetBPM := bpm + dropBPMBoost
		if targetBPM > dropTargetBPMCap {
			targetBPM = dropTargetBPMCap
		}

		result := types.ArbitrationResult{
			Prompts:    dropPrompts,
			BPM:        targetBPM,
			Density:    1.0,
			Brightness: 0.3,
			Reasoning:  "collective drop triggered",
		}
		h.audio.UpdatePrompts(ctx, room.ID, result.Prompts, result.BPM, result.Density, result.Brightness)
		room.UpdateAfterArbitration(result)
	}

	h.broadcastJSON(ctx, room.ID, dropTriggeredMessage{Type: types.MsgDropTriggered, Message: "the drop hit"})
	h.broadcastState(ctx, room)
}

// expireDropWindow clears a drop-vote window that never reached quorum
// within 10 seconds of its first vote, resetting the count to zero and
// notifying participants so momentum isn't silently lost.
func (h *Hub) expireDropWindow(room *roomstore.Room, windowStart time.Time, needed int) {
	time.Sleep(dropWindowExpiry)
	if room.Destroyed() {
		return
	}

	expired, needed := room.ExpireDropWindowIfStale(windowStart)
	if !expired {
		return
	}

	logging.Info(context.Background(), "drop window expired without quorum", zap.String("room_id", string(room.ID)))
	h.broadcastJSON(context.Background(), room.ID, dropResetMessage{
		Type:    types.MsgDropReset,
		Needed:  needed,
		Message: fmt.Sprintf("drop vote reset, %d votes needed", needed),
	})
}
