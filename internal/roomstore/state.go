package roomstore

import (
	"github.com/CrowdSynth/coordinator/internal/types"
)

// StateUpdateMessage builds the state_update snapshot broadcast to every
// participant after a create/join/leave, a music start/stop, a drop, or a
// tick. An input update alone does not trigger a broadcast.
func (r *Room) StateUpdateMessage(reasoning string) types.StateUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]types.ParticipantView, 0, len(r.Participants))
	for _, p := range r.Participants {
		participants = append(participants, types.ParticipantView{
			UserID:      string(p.UserID),
			Role:        string(p.Role),
			DisplayName: p.DisplayName,
			IsHost:      p.UserID == r.HostID,
		})
	}

	currentInputs := make(map[string]types.InputPayload, len(r.CurrentInputs))
	for role, entry := range r.CurrentInputs {
		currentInputs[string(role)] = entry.Payload
	}

	influence := make(map[string]float64, len(r.InfluenceWeights))
	for role, w := range r.InfluenceWeights {
		influence[string(role)] = w
	}

	return types.StateUpdate{
		RoomName:         r.RoomName,
		IsPlaying:        r.IsPlaying,
		ActivePrompts:    append([]types.WeightedPrompt(nil), r.ActivePrompts...),
		BPM:              r.BPM,
		Density:          r.Density,
		Brightness:       r.Brightness,
		CurrentInputs:    currentInputs,
		InfluenceWeights: influence,
		Participants:     participants,
		Timeline:         r.recentTimelineLocked(),
		GeminiReasoning:  reasoning,
	}
}

// SetPlaying flips is_playing, called by start_music/stop_music handlers.
func (r *Room) SetPlaying(playing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IsPlaying = playing
}

// IsPlayingNow reports the room's current is_playing state.
func (r *Room) IsPlayingNow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.IsPlaying
}
