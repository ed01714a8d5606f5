package gateway

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/CrowdSynth/coordinator/internal/types"
)

func TestClient_RoomIDFor_PrefersMessageRoomID(t *testing.T) {
	c := newClient(&fakeConn{}, "conn-1")
	c.bind("user-1", "BOUND1")

	got := c.roomIDFor(&types.InboundMessage{RoomID: "EXPLIC"})
	assert.Equal(t, types.RoomID("EXPLIC"), got)
}

func TestClient_RoomIDFor_FallsBackToBoundRoom(t *testing.T) {
	c := newClient(&fakeConn{}, "conn-1")
	c.bind("user-1", "BOUND1")

	got := c.roomIDFor(&types.InboundMessage{})
	assert.Equal(t, types.RoomID("BOUND1"), got)
}

func TestClient_Enqueue_NonBlockingWhenFull(t *testing.T) {
	c := newClient(&fakeConn{}, "conn-1")

	for i := 0; i < cap(c.send); i++ {
		assert.True(t, c.enqueue(websocket.TextMessage, []byte("x")))
	}
	assert.False(t, c.enqueue(websocket.TextMessage, []byte("overflow")), "buffer is full, enqueue must not block")
}

func TestClient_Identity_DefaultsEmpty(t *testing.T) {
	c := newClient(&fakeConn{}, "conn-1")
	userID, roomID := c.identity()
	assert.Equal(t, types.UserID(""), userID)
	assert.Equal(t, types.RoomID(""), roomID)
}
