// Package gateway implements the Connection gateway component: one duplex
// websocket per client, message routing, per-room broadcast fan-out, and
// the applause and drop-coordinator effects that bridge client input to the
// room store and audio session outside the tick loop.
package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// wsConnection is the duplex transport contract a Client drives; satisfied
// by *websocket.Conn in production and a fake in tests.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

// outboundFrame pairs a websocket frame's payload with its message type, so
// writePump can relay both JSON control frames and binary audio frames over
// one channel.
type outboundFrame struct {
	messageType int
	data        []byte
}

// Client is one duplex connection: a server-minted connection_id, used for
// drop-vote dedup independent of the client-supplied user_id, and the
// user/room it is currently bound to.
type Client struct {
	conn         wsConnection
	send         chan outboundFrame
	connectionID types.ConnectionID

	mu     sync.RWMutex
	userID types.UserID
	roomID types.RoomID
}

func newClient(conn wsConnection, connectionID types.ConnectionID) *Client {
	return &Client{conn: conn, send: make(chan outboundFrame, 256), connectionID: connectionID}
}

// bind records which user/room this connection currently represents, set on
// create_room/join_room and refreshed on reconnect.
func (c *Client) bind(userID types.UserID, roomID types.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.roomID = roomID
}

func (c *Client) identity() (types.UserID, types.RoomID) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.roomID
}

// roomIDFor prefers an explicit room_id on the inbound message, falling
// back to the connection's currently bound room — host actions after the
// initial create_room/join_room typically omit room_id.
func (c *Client) roomIDFor(msg *types.InboundMessage) types.RoomID {
	if msg.RoomID != "" {
		return types.RoomID(msg.RoomID)
	}
	_, roomID := c.identity()
	return roomID
}

// enqueue attempts a non-blocking send; a full buffer means the peer is not
// draining fast enough and is treated as dead for broadcast-reaping
// purposes.
func (c *Client) enqueue(messageType int, data []byte) bool {
	select {
	case c.send <- outboundFrame{messageType: messageType, data: data}:
		return true
	default:
		return false
	}
}

func (c *Client) sendJSON(ctx context.Context, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error(ctx, "failed to marshal outbound message", zap.Error(err))
		return
	}
	if !c.enqueue(websocket.TextMessage, data) {
		logging.Warn(ctx, "client send buffer full, dropping message", zap.String("connection_id", string(c.connectionID)))
	}
}

// readPump reads inbound frames and routes JSON text frames to the hub;
// binary frames from the client are silently ignored per the transport
// contract (binary frames are server-to-client only).
func (c *Client) readPump(ctx context.Context, h *Hub) {
	defer func() {
		h.handleDisconnect(c)
		c.conn.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg types.InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendJSON(ctx, newError("malformed message"))
			continue
		}
		h.route(ctx, c, &msg)
	}
}

// writePump drains the outbound channel to the socket and issues a
// heartbeat ping every 30s from one fan-out-plus-ping select loop.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(frame.messageType, frame.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, pingFrame); err != nil {
				return
			}
		}
	}
}

var pingFrame = mustMarshal(simpleMessage{Type: types.MsgPing})

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
