package gateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/audiosession"
	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/CrowdSynth/coordinator/internal/ratelimit"
	"github.com/CrowdSynth/coordinator/internal/roomstore"
	"github.com/CrowdSynth/coordinator/internal/ticker"
	"github.com/CrowdSynth/coordinator/internal/types"
)

// Hub is the Connection gateway's registry: it owns the websocket upgrade
// surface, the per-room live-connection set, and message routing, and is
// the only caller into the room store, audio session, and tick scheduler
// on behalf of a connected client.
type Hub struct {
	store     *roomstore.Store
	audio     *audiosession.Client
	limiter   *ratelimit.Limiter
	scheduler *ticker.Scheduler
	origins   []string

	mu    sync.RWMutex
	conns map[types.RoomID]map[types.ConnectionID]*Client
}

// NewHub constructs a gateway hub. SetScheduler must be called once before
// any start_music/stop_music traffic arrives, since the scheduler's
// broadcast callbacks close over this hub.
func NewHub(store *roomstore.Store, audio *audiosession.Client, limiter *ratelimit.Limiter, frontendURL string) *Hub {
	return &Hub{
		store:   store,
		audio:   audio,
		limiter: limiter,
		origins: allowedOrigins(frontendURL),
		conns:   make(map[types.RoomID]map[types.ConnectionID]*Client),
	}
}

// SetScheduler wires the tick scheduler after construction, breaking the
// construction cycle between the hub and the scheduler's broadcast
// callbacks.
func (h *Hub) SetScheduler(s *ticker.Scheduler) {
	h.scheduler = s
}

// SetAudio wires the audio-session client after construction, breaking the
// construction cycle between the hub and the audio client's broadcast
// callback (which is h.BroadcastAudio).
func (h *Hub) SetAudio(a *audiosession.Client) {
	h.audio = a
}

// BroadcastAudio forwards a relayed audio chunk to every live connection in
// roomID as a binary frame. Passed to the audio-session client as its
// broadcast callback.
func (h *Hub) BroadcastAudio(roomID types.RoomID, audio []byte) {
	h.broadcastBytes(roomID, websocket.BinaryMessage, audio)
}

// TickStateBroadcast satisfies ticker.StateBroadcastFunc.
func (h *Hub) TickStateBroadcast(roomID types.RoomID, msg types.StateUpdate) {
	h.broadcastJSON(context.Background(), roomID, stateUpdateMessage{Type: types.MsgStateUpdate, StateUpdate: msg})
}

// TickErrorBroadcast satisfies ticker.ErrorBroadcastFunc.
func (h *Hub) TickErrorBroadcast(roomID types.RoomID, message string) {
	h.broadcastJSON(context.Background(), roomID, streamErrorMessage{Type: types.MsgStreamError, Message: message})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ServeWs upgrades the request to a websocket connection, mints a
// connection_id, and starts the client's read/write pumps.
func (h *Hub) ServeWs(c *gin.Context) {
	u := upgrader
	u.CheckOrigin = checkOrigin(h.origins)

	conn, err := u.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	connectionID := types.ConnectionID(uuid.New().String())
	client := newClient(conn, connectionID)

	// The connection's read/write pumps outlive this request handler, and
	// net/http cancels c.Request.Context() the moment ServeWs returns, so
	// the pumps can't just inherit it. The correlation ID is still worth
	// carrying forward as a value onto a fresh, uncancelable context, so
	// every log line for the connection's whole lifetime ties back to the
	// request that opened it.
	ctx := context.Background()
	if correlationID, ok := c.Request.Context().Value(logging.CorrelationIDKey).(string); ok {
		ctx = context.WithValue(ctx, logging.CorrelationIDKey, correlationID)
	}
	ctx = context.WithValue(ctx, logging.ConnectionIDKey, string(connectionID))

	metrics.IncConnection()
	go client.writePump()
	go client.readPump(ctx, h)
}

func (h *Hub) register(roomID types.RoomID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[roomID] == nil {
		h.conns[roomID] = make(map[types.ConnectionID]*Client)
	}
	h.conns[roomID][c.connectionID] = c
}

func (h *Hub) unregisterRoom(roomID types.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, roomID)
}

// handleDisconnect drops the connection from its room's broadcast set when
// the socket closes. Roles persist in the room store; the participant may
// reconnect under the same user_id.
func (h *Hub) handleDisconnect(c *Client) {
	metrics.DecConnection()
	_, roomID := c.identity()
	if roomID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[roomID]; ok {
		delete(set, c.connectionID)
	}
}

func (h *Hub) broadcastJSON(ctx context.Context, roomID types.RoomID, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error(ctx, "failed to marshal broadcast message", zap.Error(err))
		return
	}
	h.broadcastBytes(roomID, websocket.TextMessage, data)
}

// broadcastBytes snapshots the room's connection set, attempts a
// non-blocking enqueue to each, and reaps any connection whose send buffer
// was full — the idiomatic-Go approximation of iterate-and-reap-in-one-pass
// semantics.
func (h *Hub) broadcastBytes(roomID types.RoomID, messageType int, data []byte) {
	h.mu.RLock()
	set := h.conns[roomID]
	targets := make([]*Client, 0, len(set))
	for _, c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var dead []types.ConnectionID
	for _, c := range targets {
		if !c.enqueue(messageType, data) {
			dead = append(dead, c.connectionID)
		}
	}
	if len(dead) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[roomID]; ok {
		for _, id := range dead {
			delete(set, id)
		}
	}
}

// broadcastState refreshes every connection in room with the room's current
// state_update snapshot.
func (h *Hub) broadcastState(ctx context.Context, room *roomstore.Room) {
	h.broadcastJSON(ctx, room.ID, stateUpdateMessage{Type: types.MsgStateUpdate, StateUpdate: room.StateUpdateMessage("")})
}
