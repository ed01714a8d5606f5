// Package roomstore holds the in-memory room state: participants, roles,
// timelines, influence weights, and drop-vote windows. It is the single
// writer-serialisation point for room mutations; callers never hold its
// lock across network I/O.
package roomstore

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	maxParticipants     = 10
	maxTimelineLength   = 50
	timelineBroadcastN  = 20
	seedPromptText      = "ambient electronic music"
	defaultBPM          = 100
	defaultDensity      = 0.5
	defaultBrightness   = 0.5
	minBPM              = 60
	maxBPM              = 200
	influenceHalfLifeS  = 30.0
	minInfluenceWeight  = 0.05
)

// inputEntry pairs a stored payload with the time it was recorded, the
// basis for influence-weight half-life decay.
type inputEntry struct {
	Payload types.InputPayload
	At      time.Time
}

// Participant is one connected (or previously connected) room member.
type Participant struct {
	UserID       types.UserID
	ConnectionID types.ConnectionID
	DisplayName  string
	Role         types.RoleType
}

// Room is one coordinated jam session: its participants, musical state,
// timeline, and the drop-vote window belong here and are not exposed to the
// gateway except through locked accessor methods.
type Room struct {
	ID             types.RoomID
	mu             sync.Mutex
	HostID         types.UserID
	HostDeviceName string
	RoomName       string

	IsPlaying  bool
	BPM        int
	Density    float64
	Brightness float64

	ActivePrompts []types.WeightedPrompt
	CurrentInputs map[types.RoleType]inputEntry

	InfluenceWeights map[types.RoleType]float64

	Participants map[types.UserID]*Participant

	timeline *list.List

	dropWindow *dropWindow

	Ctx    context.Context
	Cancel context.CancelFunc
}

func newRoom(id types.RoomID, hostID types.UserID, deviceName, roomName string) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		ID:             id,
		HostID:         hostID,
		HostDeviceName: deviceName,
		RoomName:       roomName,
		BPM:            defaultBPM,
		Density:        defaultDensity,
		Brightness:     defaultBrightness,
		ActivePrompts:  []types.WeightedPrompt{{Text: seedPromptText, Weight: 1.0}},
		CurrentInputs:  make(map[types.RoleType]inputEntry),
		InfluenceWeights: make(map[types.RoleType]float64),
		Participants:   make(map[types.UserID]*Participant),
		timeline:       list.New(),
		dropWindow:     &dropWindow{votes: make(map[types.ConnectionID]time.Time)},
		Ctx:            ctx,
		Cancel:         cancel,
	}
	r.appendTimelineLocked("system", "room created")
	return r
}

// Destroyed reports whether destroy_room has cancelled this room's context.
func (r *Room) Destroyed() bool {
	select {
	case <-r.Ctx.Done():
		return true
	default:
		return false
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
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
