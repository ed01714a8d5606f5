package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowdSynth/coordinator/internal/types"
)

func mustPayload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRoomLifecycle_CreateJoinUnknownRoom(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	connA := &fakeConn{}
	clientA := newClient(connA, "conn-A")

	h.route(ctx, clientA, &types.InboundMessage{
		Type:   types.MsgCreateRoom,
		UserID: "A",
		Payload: mustPayload(t, types.CreateRoomPayload{
			DeviceName: "iphone", RoomName: "Room One", DisplayName: "Alice",
		}),
	})

	flush(clientA)
	writesA := connA.writes()
	require.NotEmpty(t, writesA)

	var created roomCreatedMessage
	require.NoError(t, json.Unmarshal(writesA[0], &created))
	assert.Equal(t, types.MsgRoomCreated, created.Type)
	assert.Equal(t, types.RoleDrummer, created.Role)
	require.Len(t, created.RoomID, 6)

	userID, roomID := clientA.identity()
	assert.Equal(t, types.UserID("A"), userID)
	assert.Equal(t, types.RoomID(created.RoomID), roomID)

	var sawState bool
	for _, w := range writesA {
		if containsType(w, "state_update") {
			sawState = true
		}
	}
	assert.True(t, sawState, "create_room must broadcast a state_update")

	connB := &fakeConn{}
	clientB := newClient(connB, "conn-B")
	h.route(ctx, clientB, &types.InboundMessage{
		Type:   types.MsgJoinRoom,
		UserID: "B",
		Payload: mustPayload(t, types.JoinRoomPayload{
			RoomID: created.RoomID, DisplayName: "Bob",
		}),
	})

	flush(clientB)
	writesB := connB.writes()
	require.NotEmpty(t, writesB)
	var joined joinedMessage
	require.NoError(t, json.Unmarshal(writesB[0], &joined))
	assert.Equal(t, types.MsgJoined, joined.Type)
	assert.Equal(t, types.RoleVibeSetter, joined.Role)

	connA2 := &fakeConn{}
	clientA2 := newClient(connA2, "conn-A2")
	h.route(ctx, clientA2, &types.InboundMessage{
		Type:   types.MsgJoinRoom,
		UserID: "A",
		Payload: mustPayload(t, types.JoinRoomPayload{
			RoomID: "ZZZZZZ", DisplayName: "Alice",
		}),
	})

	flush(clientA2)
	writesA2 := connA2.writes()
	require.NotEmpty(t, writesA2)
	var errMsg errorMessage
	require.NoError(t, json.Unmarshal(writesA2[0], &errMsg))
	assert.Equal(t, types.MsgError, errMsg.Type)
	assert.Equal(t, "Room ZZZZZZ not found", errMsg.Message)
}

func TestInputUpdate_UnknownRoleSilentlyIgnored(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	conn := &fakeConn{}
	client := newClient(conn, "conn-A")
	h.route(ctx, client, &types.InboundMessage{
		Type:   types.MsgCreateRoom,
		UserID: "A",
		Payload: mustPayload(t, types.CreateRoomPayload{
			DeviceName: "iphone", RoomName: "Room", DisplayName: "Alice",
		}),
	})
	_, roomID := client.identity()

	h.route(ctx, client, &types.InboundMessage{
		Type:   types.MsgInputUpdate,
		RoomID: string(roomID),
		UserID: "A",
		Payload: mustPayload(t, types.InputUpdatePayload{
			Role: "not_a_real_role",
		}),
	})

	flush(client)
	for _, w := range conn.writes() {
		assert.False(t, containsType(w, `"type":"error"`), "unknown role must not produce an error reply")
	}
}

func TestNonHostCannotStartMusic(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	connA := &fakeConn{}
	clientA := newClient(connA, "conn-A")
	h.route(ctx, clientA, &types.InboundMessage{
		Type:   types.MsgCreateRoom,
		UserID: "A",
		Payload: mustPayload(t, types.CreateRoomPayload{
			DeviceName: "iphone", RoomName: "Room", DisplayName: "Alice",
		}),
	})
	_, roomID := clientA.identity()

	connB := &fakeConn{}
	clientB := newClient(connB, "conn-B")
	h.route(ctx, clientB, &types.InboundMessage{
		Type:   types.MsgJoinRoom,
		UserID: "B",
		Payload: mustPayload(t, types.JoinRoomPayload{RoomID: string(roomID), DisplayName: "Bob"}),
	})

	h.route(ctx, clientB, &types.InboundMessage{
		Type:   types.MsgStartMusic,
		RoomID: string(roomID),
		UserID: "B",
	})

	var sawError bool
	flush(clientB)
	for _, w := range connB.writes() {
		if containsType(w, "only the host may perform this action") {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

// TestReconnect_HostActionWithoutRejoin covers a host reconnecting on a
// fresh connection (no state carried across socket churn) and issuing a
// host-only action directly, without first re-sending join_room.
func TestReconnect_HostActionWithoutRejoin(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	connA := &fakeConn{}
	clientA := newClient(connA, "conn-A")
	h.route(ctx, clientA, &types.InboundMessage{
		Type:   types.MsgCreateRoom,
		UserID: "A",
		Payload: mustPayload(t, types.CreateRoomPayload{
			DeviceName: "iphone", RoomName: "Room", DisplayName: "Alice",
		}),
	})
	_, roomID := clientA.identity()

	connA2 := &fakeConn{}
	clientA2 := newClient(connA2, "conn-A2")
	h.route(ctx, clientA2, &types.InboundMessage{
		Type:   types.MsgCloseRoom,
		RoomID: string(roomID),
		UserID: "A",
	})

	var sawRejection bool
	var sawClosed bool
	flush(clientA2)
	for _, w := range connA2.writes() {
		if containsType(w, "only the host may perform this action") {
			sawRejection = true
		}
		if containsType(w, "room_closed") {
			sawClosed = true
		}
	}
	assert.False(t, sawRejection, "a reconnected host must be recognized without re-issuing join_room")
	assert.True(t, sawClosed)

	_, roomID2 := clientA2.identity()
	assert.Equal(t, roomID, roomID2, "the fresh connection must be rebound to the room it named")
}

// TestReconnect_LeaveRoomWithoutRejoin covers the same reconnect path for a
// non-host participant sending leave_room directly.
func TestReconnect_LeaveRoomWithoutRejoin(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()

	connA := &fakeConn{}
	clientA := newClient(connA, "conn-A")
	h.route(ctx, clientA, &types.InboundMessage{
		Type:   types.MsgCreateRoom,
		UserID: "A",
		Payload: mustPayload(t, types.CreateRoomPayload{
			DeviceName: "iphone", RoomName: "Room", DisplayName: "Alice",
		}),
	})
	_, roomID := clientA.identity()

	connB := &fakeConn{}
	clientB := newClient(connB, "conn-B")
	h.route(ctx, clientB, &types.InboundMessage{
		Type:   types.MsgJoinRoom,
		UserID: "B",
		Payload: mustPayload(t, types.JoinRoomPayload{RoomID: string(roomID), DisplayName: "Bob"}),
	})

	room, err := h.store.GetRoom(roomID)
	require.NoError(t, err)
	_, stillThere := room.RoleOf("B")
	require.True(t, stillThere)

	connB2 := &fakeConn{}
	clientB2 := newClient(connB2, "conn-B2")
	h.route(ctx, clientB2, &types.InboundMessage{
		Type:   types.MsgLeaveRoom,
		RoomID: string(roomID),
		UserID: "B",
	})

	_, stillThereAfter := room.RoleOf("B")
	assert.False(t, stillThereAfter, "leave_room from a reconnected connection must remove the right user_id")
}
