package roomstore

import (
	"sync"

	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/CrowdSynth/coordinator/internal/types"
)

// Store is the process-wide, in-memory map of rooms. It owns no network
// I/O; the gateway and tick scheduler hold a reference to it and call its
// methods, each of which takes the store lock only for the map operation
// itself before delegating to the per-room lock.
type Store struct {
	mu    sync.RWMutex
	rooms map[types.RoomID]*Room
}

// NewStore constructs an empty room store.
func NewStore() *Store {
	return &Store{rooms: make(map[types.RoomID]*Room)}
}

// CreateRoom mints a room_id, initialises a new Room with host defaults,
// and registers it. The host is not auto-joined here; the gateway performs
// the join immediately after so the returned role flows through the same
// path a later join_room would take.
func (s *Store) CreateRoom(hostID types.UserID, deviceName, roomName string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := newRoomID(func(id types.RoomID) bool {
		_, exists := s.rooms[id]
		return exists
	})
	if err != nil {
		return nil, err
	}

	room := newRoom(id, hostID, deviceName, roomName)
	s.rooms[id] = room
	metrics.ActiveRooms.Inc()
	return room, nil
}

// GetRoom returns the room for id, or ErrUnknownRoom.
func (s *Store) GetRoom(id types.RoomID) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, ErrUnknownRoom
	}
	return room, nil
}

// DestroyRoom cancels the room's context (stopping its tick loop and audio
// relay cooperatively) and removes it from the store. Safe to call more
// than once; subsequent calls are no-ops.
func (s *Store) DestroyRoom(id types.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return
	}
	room.Cancel()
	delete(s.rooms, id)
	metrics.ActiveRooms.Dec()
}

// Rooms returns a snapshot slice of every live room, used at process
// shutdown to cancel outstanding tick loops and audio sessions.
func (s *Store) Rooms() []*Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}
