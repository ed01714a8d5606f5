package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/CrowdSynth/coordinator/internal/config"
	"github.com/CrowdSynth/coordinator/internal/ratelimit"
	"github.com/CrowdSynth/coordinator/internal/roomstore"
)

// fakeConn is a wsConnection test double: a queue of inbound frames plus a
// recorded log of outbound writes, mirroring the shape of a real duplex
// socket without a network round trip.
type fakeConn struct {
	mu           sync.Mutex
	readMessages [][]byte
	readIndex    int
	writeTypes   []int
	writeData    [][]byte
	closed       bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readIndex >= len(f.readMessages) {
		return 0, nil, websocket.ErrCloseSent
	}
	msg := f.readMessages[f.readIndex]
	f.readIndex++
	return websocket.TextMessage, msg, nil
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeTypes = append(f.writeTypes, messageType)
	f.writeData = append(f.writeData, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeConn) writes() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.writeData))
	copy(out, f.writeData)
	return out
}

// flush drains c's outbound queue into its connection synchronously, doing
// writePump's job without a goroutine so tests can inspect conn.writes().
func flush(c *Client) {
	for {
		select {
		case frame := <-c.send:
			c.conn.WriteMessage(frame.messageType, frame.data)
		default:
			return
		}
	}
}

func newTestLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.NewLimiter(&config.Config{
		RateLimitInputUpdate:    "100000-M",
		RateLimitApplauseUpdate: "100000-M",
	})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}
	return l
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	store := roomstore.NewStore()
	return NewHub(store, nil, newTestLimiter(t), "*")
}
