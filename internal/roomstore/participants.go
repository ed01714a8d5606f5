package roomstore

import (
	"github.com/CrowdSynth/coordinator/internal/types"
)

// primaryRoleOrder is the tie-break scan order for newcomer role assignment;
// energy is the overflow role once all four are occupied.
var primaryRoleOrder = []types.RoleType{
	types.RoleDrummer,
	types.RoleVibeSetter,
	types.RoleGenreDJ,
	types.RoleInstrumentalist,
}

// assignRoleLocked returns the role a new participant should receive, per
// the primary-role scan order falling back to energy. Caller must hold r.mu.
func (r *Room) assignRoleLocked() types.RoleType {
	occupied := make(map[types.RoleType]bool, len(primaryRoleOrder))
	for _, p := range r.Participants {
		occupied[p.Role] = true
	}
	for _, role := range primaryRoleOrder {
		if !occupied[role] {
			return role
		}
	}
	return types.RoleEnergy
}

// Join registers userID into the room, honouring idempotent reconnects
// (the same user_id keeps its previously assigned role) and the 10-
// participant cap, which applies only to genuinely new participants.
func (r *Room) Join(userID types.UserID, connectionID types.ConnectionID, displayName string) (types.RoleType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.Participants[userID]; ok {
		existing.ConnectionID = connectionID
		if displayName != "" {
			existing.DisplayName = displayName
		}
		r.appendTimelineLocked("system", string(userID)+" reconnected")
		return existing.Role, nil
	}

	if len(r.Participants) >= maxParticipants {
		return types.RoleUnknown, ErrRoomFull
	}

	role := r.assignRoleLocked()
	r.Participants[userID] = &Participant{
		UserID:       userID,
		ConnectionID: connectionID,
		DisplayName:  displayName,
		Role:         role,
	}
	r.appendTimelineLocked("system", string(userID)+" joined as "+string(role))
	return role, nil
}

// Leave permanently removes userID from the room (explicit leave_room,
// not transient disconnect — role entries otherwise persist across
// reconnects for the room's lifetime).
func (r *Room) Leave(userID types.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Participants[userID]; !ok {
		return
	}
	delete(r.Participants, userID)
	r.appendTimelineLocked("system", string(userID)+" left")
}

// IsHost reports whether userID is the room's creator.
func (r *Room) IsHost(userID types.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return userID == r.HostID
}

// ParticipantCount returns the current number of distinct participants.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Participants)
}

// RoleOf returns the role assigned to userID, if present.
func (r *Room) RoleOf(userID types.UserID) (types.RoleType, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.Participants[userID]
	if !ok {
		return types.RoleUnknown, false
	}
	return p.Role, true
}
