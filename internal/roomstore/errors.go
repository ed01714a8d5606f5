package roomstore

import "errors"

var (
	// errTooManyCollisions is returned if room_id minting cannot find a free id.
	errTooManyCollisions = errors.New("roomstore: could not mint a unique room id")

	// ErrUnknownRoom is returned when an operation targets a room_id that
	// does not exist in the store.
	ErrUnknownRoom = errors.New("roomstore: unknown room")

	// ErrRoomFull is returned by Room.Join when a new participant would
	// exceed the room's capacity.
	ErrRoomFull = errors.New("roomstore: room is full")
)
