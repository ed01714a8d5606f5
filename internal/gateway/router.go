package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/roomstore"
	"github.com/CrowdSynth/coordinator/internal/types"
)

// route dispatches an inbound message to its handler per the effects table:
// each message type mutates the room store, the audio session, or both,
// then broadcasts whatever the wire contract requires.
func (h *Hub) route(ctx context.Context, c *Client, msg *types.InboundMessage) {
	switch msg.Type {
	case types.MsgCreateRoom:
		h.handleCreateRoom(ctx, c, msg)
	case types.MsgJoinRoom:
		h.handleJoinRoom(ctx, c, msg)
	case types.MsgStartMusic:
		h.handleStartMusic(ctx, c, msg)
	case types.MsgStopMusic:
		h.handleStopMusic(ctx, c, msg)
	case types.MsgCloseRoom:
		h.handleTeardown(ctx, c, msg, types.MsgRoomClosed, "the host closed this room")
	case types.MsgEndStream:
		h.handleTeardown(ctx, c, msg, types.MsgRoomEnded, "")
	case types.MsgLeaveRoom:
		h.handleLeaveRoom(ctx, c, msg)
	case types.MsgInputUpdate:
		h.handleInputUpdate(ctx, c, msg)
	case types.MsgApplauseUpdate:
		h.handleApplauseUpdate(ctx, c, msg)
	case types.MsgDrop:
		h.handleDrop(ctx, c, msg)
	default:
		// unknown message type: silently ignored per the gateway's error policy
	}
}

// roomFor resolves the room targeted by an inbound message, sending a
// private error and reporting false on a miss. A message carrying room_id
// on a connection that isn't yet bound to any room (a reconnect, since the
// gateway keeps no connection state across socket churn) re-registers the
// connection into the room's broadcast set and restores its previously
// assigned role, regardless of which message type triggered it.
func (h *Hub) roomFor(ctx context.Context, c *Client, msg *types.InboundMessage) (*roomstore.Room, bool) {
	roomID := c.roomIDFor(msg)
	room, err := h.store.GetRoom(roomID)
	if err != nil {
		c.sendJSON(ctx, newError(fmt.Sprintf("Room %s not found", roomID)))
		return nil, false
	}
	h.rebindIfUnbound(c, room, msg)
	return room, true
}

// rebindIfUnbound restores a reconnected client's room membership: if c has
// no bound room yet but msg named one and its user_id was already a
// participant, re-register the connection and rebind without requiring a
// fresh join_room.
func (h *Hub) rebindIfUnbound(c *Client, room *roomstore.Room, msg *types.InboundMessage) {
	_, boundRoomID := c.identity()
	if boundRoomID != "" || msg.UserID == "" {
		return
	}

	userID := types.UserID(msg.UserID)
	if _, ok := room.RoleOf(userID); !ok {
		return
	}

	room.Join(userID, c.connectionID, "")
	c.bind(userID, room.ID)
	h.register(room.ID, c)
}

// roomForHostAction resolves the room and additionally requires the
// connection's bound user to be its host, used by start_music/stop_music
// and the close_room/end_stream teardown handlers.
func (h *Hub) roomForHostAction(ctx context.Context, c *Client, msg *types.InboundMessage) (*roomstore.Room, bool) {
	room, ok := h.roomFor(ctx, c, msg)
	if !ok {
		return nil, false
	}
	userID, _ := c.identity()
	if !room.IsHost(userID) {
		c.sendJSON(ctx, newError("only the host may perform this action"))
		return nil, false
	}
	return room, true
}

func (h *Hub) handleCreateRoom(ctx context.Context, c *Client, msg *types.InboundMessage) {
	var payload types.CreateRoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendJSON(ctx, newError("malformed create_room payload"))
		return
	}

	hostID := types.UserID(msg.UserID)
	room, err := h.store.CreateRoom(hostID, payload.DeviceName, payload.RoomName)
	if err != nil {
		logging.Error(ctx, "failed to create room", zap.Error(err))
		c.sendJSON(ctx, newError("failed to create room"))
		return
	}

	role, err := room.Join(hostID, c.connectionID, payload.DisplayName)
	if err != nil {
		c.sendJSON(ctx, newError("failed to join newly created room"))
		return
	}

	c.bind(hostID, room.ID)
	h.register(room.ID, c)

	c.sendJSON(ctx, roomCreatedMessage{
		Type:     types.MsgRoomCreated,
		RoomID:   string(room.ID),
		RoomName: payload.RoomName,
		JoinURL:  "/join/" + string(room.ID),
		Role:     role,
	})
	h.broadcastState(ctx, room)
}

func (h *Hub) handleJoinRoom(ctx context.Context, c *Client, msg *types.InboundMessage) {
	var payload types.JoinRoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendJSON(ctx, newError("malformed join_room payload"))
		return
	}

	roomID := types.RoomID(payload.RoomID)
	room, err := h.store.GetRoom(roomID)
	if err != nil {
		c.sendJSON(ctx, newError(fmt.Sprintf("Room %s not found", roomID)))
		return
	}

	userID := types.UserID(msg.UserID)
	role, err := room.Join(userID, c.connectionID, payload.DisplayName)
	if err != nil {
		c.sendJSON(ctx, newError(err.Error()))
		return
	}

	c.bind(userID, room.ID)
	h.register(room.ID, c)

	c.sendJSON(ctx, joinedMessage{Type: types.MsgJoined, RoomID: string(room.ID), Role: role, UserID: msg.UserID})
	h.broadcastState(ctx, room)
}

func (h *Hub) handleStartMusic(ctx context.Context, c *Client, msg *types.InboundMessage) {
	room, ok := h.roomForHostAction(ctx, c, msg)
	if !ok {
		return
	}

	bpm, _, _ := room.Snapshot()
	if err := h.audio.StartSession(ctx, room.ID, bpm); err != nil {
		logging.Error(ctx, "failed to start audio session", zap.String("room_id", string(room.ID)), zap.Error(err))
		room.SetPlaying(false)
		c.sendJSON(ctx, newError("failed to start music: "+err.Error()))
		return
	}

	room.SetPlaying(true)
	if h.scheduler != nil {
		h.scheduler.Start(room)
	}

	h.broadcastJSON(ctx, room.ID, simpleMessage{Type: types.MsgMusicStarted})
	h.broadcastState(ctx, room)
}

func (h *Hub) handleStopMusic(ctx context.Context, c *Client, msg *types.InboundMessage) {
	room, ok := h.roomForHostAction(ctx, c, msg)
	if !ok {
		return
	}

	room.SetPlaying(false)
	if h.scheduler != nil {
		h.scheduler.Stop(room.ID)
	}
	h.audio.StopSession(ctx, room.ID)

	h.broadcastJSON(ctx, room.ID, simpleMessage{Type: types.MsgMusicStopped})
	h.broadcastState(ctx, room)
}

// handleTeardown is shared by close_room (host-only, requires a farewell
// message) and end_stream (host-only, bare type message).
func (h *Hub) handleTeardown(ctx context.Context, c *Client, msg *types.InboundMessage, eventType types.MessageType, message string) {
	room, ok := h.roomForHostAction(ctx, c, msg)
	if !ok {
		return
	}

	if room.IsPlayingNow() {
		if h.scheduler != nil {
			h.scheduler.Stop(room.ID)
		}
		h.audio.StopSession(ctx, room.ID)
	}

	if message != "" {
		h.broadcastJSON(ctx, room.ID, roomClosedMessage{Type: eventType, Message: message})
	} else {
		h.broadcastJSON(ctx, room.ID, simpleMessage{Type: eventType})
	}

	h.store.DestroyRoom(room.ID)
	h.unregisterRoom(room.ID)
}

func (h *Hub) handleLeaveRoom(ctx context.Context, c *Client, msg *types.InboundMessage) {
	room, ok := h.roomFor(ctx, c, msg)
	if !ok {
		return
	}
	userID, _ := c.identity()
	room.Leave(userID)
	h.broadcastState(ctx, room)
}

func (h *Hub) handleInputUpdate(ctx context.Context, c *Client, msg *types.InboundMessage) {
	if !h.limiter.AllowInputUpdate(ctx, string(c.connectionID)) {
		return
	}

	var payload types.InputUpdatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.sendJSON(ctx, newError("malformed input_update payload"))
		return
	}

	role, ok := types.ParseRole(payload.Role)
	if !ok {
		return
	}

	room, ok := h.roomFor(ctx, c, msg)
	if !ok {
		return
	}
	room.UpdateInput(role, payload.Payload)
}
