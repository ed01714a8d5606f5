package roomstore

import (
	"crypto/rand"
	"math/big"

	"github.com/CrowdSynth/coordinator/internal/types"
)

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const roomIDLength = 6

// newRoomID mints a six-character uppercase alphanumeric room_id, retrying
// on collision against the caller-supplied existence check.
func newRoomID(exists func(types.RoomID) bool) (types.RoomID, error) {
	for attempt := 0; attempt < 100; attempt++ {
		id, err := randomRoomID()
		if err != nil {
			return "", err
		}
		if !exists(id) {
			return id, nil
		}
	}
	return "", errTooManyCollisions
}

func randomRoomID() (types.RoomID, error) {
	b := make([]byte, roomIDLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomIDAlphabet))))
		if err != nil {
			return "", err
		}
		b[i] = roomIDAlphabet[n.Int64()]
	}
	return types.RoomID(b), nil
}
