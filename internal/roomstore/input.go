package roomstore

import (
	"time"

	"github.com/CrowdSynth/coordinator/internal/types"
)

// UpdateInput stores payload under role, stamps its arrival time, and
// recomputes influence weights. Messages with an unrecognised role are the
// gateway's responsibility to drop before calling this.
func (r *Room) UpdateInput(role types.RoleType, payload types.InputPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	r.CurrentInputs[role] = inputEntry{Payload: payload, At: now}
	r.InfluenceWeights = computeInfluenceWeights(r.CurrentInputs, now)
	r.appendTimelineLocked(string(role), "input update")
}

// ClearInputsLocked drops all current_inputs so stale payloads do not
// re-trigger arbitration on the next tick. Caller must hold r.mu.
func (r *Room) ClearInputsLocked() {
	r.CurrentInputs = make(map[types.RoleType]inputEntry)
}

// ClearInputs is the unlocked entry point for the tick scheduler.
func (r *Room) ClearInputs() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ClearInputsLocked()
}

// ApplyEnergyKnobsLocked applies any pending energy-role density/brightness
// knobs directly to the room, bypassing the arbitrator, per the tick
// scheduler's step 3. Caller must hold r.mu.
func (r *Room) ApplyEnergyKnobsLocked() {
	entry, ok := r.CurrentInputs[types.RoleEnergy]
	if !ok {
		return
	}
	if entry.Payload.Density != nil {
		r.Density = clampFloat(*entry.Payload.Density, 0, 1)
	}
	if entry.Payload.Brightness != nil {
		r.Brightness = clampFloat(*entry.Payload.Brightness, 0, 1)
	}
}

// CurrentInputsSnapshot returns a copy of current_inputs suitable for
// passing to the arbitrator without holding the room lock during the call.
func (r *Room) CurrentInputsSnapshot() map[types.RoleType]types.InputPayload {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[types.RoleType]types.InputPayload, len(r.CurrentInputs))
	for role, entry := range r.CurrentInputs {
		out[role] = entry.Payload
	}
	return out
}

// Snapshot returns the room's current musical knobs, read under lock.
func (r *Room) Snapshot() (bpm int, density, brightness float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.BPM, r.Density, r.Brightness
}

// DrummerBPM returns the drummer's currently submitted bpm, if any.
func (r *Room) DrummerBPM() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.CurrentInputs[types.RoleDrummer]
	if !ok || entry.Payload.BPM == nil {
		return 0, false
	}
	return *entry.Payload.BPM, true
}
