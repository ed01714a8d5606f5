package audiosession

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	maxBPMDeltaPerTick = 10
	seedPromptText     = "ambient electronic music with soft synth pads"
	defaultTemperature = 1.0
)

// state is a room's audio-session lifecycle stage.
type state int

const (
	stateAbsent state = iota
	stateStarting
	stateActive
	stateStopping
)

// handle is the per-room audio session bookkeeping: the upstream session
// object, current/target bpm, and the prompts last pushed (for applause
// overlay reuse).
type handle struct {
	session     upstreamSession
	state       state
	bpm         int
	targetBPM   int
	lastPrompts []types.WeightedPrompt
	cancel      context.CancelFunc
}

// Client is the Audio-session client component (spec component #2): it owns
// one upstream streaming session per playing room.
type Client struct {
	mu        sync.Mutex
	sessions  map[types.RoomID]*handle
	factory   sessionFactory
	broadcast BroadcastFunc
	breaker   *gobreaker.CircuitBreaker
}

// NewClient constructs an audio-session client backed by the genai live
// music SDK, broadcasting relayed audio via broadcast.
func NewClient(apiKey string, broadcast BroadcastFunc) (*Client, error) {
	return newClient(newGenaiSessionFactory(apiKey), broadcast)
}

func newClient(factory sessionFactory, broadcast BroadcastFunc) (*Client, error) {
	settings := gobreaker.Settings{
		Name:        "audiosession",
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     30 * time.Second,
		OnStateChange: func(name string, from, to gobreaker.State) {
			var stateVal float64
			switch to {
			case gobreaker.StateClosed:
				stateVal = 0
			case gobreaker.StateOpen:
				stateVal = 1
			case gobreaker.StateHalfOpen:
				stateVal = 2
			}
			metrics.CircuitBreakerState.WithLabelValues("audiosession").Set(stateVal)
		},
	}
	return &Client{
		sessions:  make(map[types.RoomID]*handle),
		factory:   factory,
		broadcast: broadcast,
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// StartSession opens a duplex upstream session for roomID, seeds its
// generation config and a default prompt, starts playback, and spawns the
// background relay task. Idempotent: a no-op if a session already exists.
func (c *Client) StartSession(ctx context.Context, roomID types.RoomID, initialBPM int) error {
	c.mu.Lock()
	if _, exists := c.sessions[roomID]; exists {
		c.mu.Unlock()
		return nil
	}
	h := &handle{state: stateStarting, bpm: initialBPM, targetBPM: initialBPM}
	c.sessions[roomID] = h
	c.mu.Unlock()

	sess, err := c.factory(ctx, roomID, initialBPM)
	if err != nil {
		c.mu.Lock()
		delete(c.sessions, roomID)
		c.mu.Unlock()
		return err
	}

	if err := sess.SetMusicGenerationConfig(ctx, initialBPM, 0.5, 0.5, defaultTemperature); err != nil {
		sess.Close()
		c.mu.Lock()
		delete(c.sessions, roomID)
		c.mu.Unlock()
		return err
	}
	seed := []types.WeightedPrompt{{Text: seedPromptText, Weight: 1.0}}
	if err := sess.SetWeightedPrompts(ctx, seed); err != nil {
		sess.Close()
		c.mu.Lock()
		delete(c.sessions, roomID)
		c.mu.Unlock()
		return err
	}
	if err := sess.Play(ctx); err != nil {
		sess.Close()
		c.mu.Lock()
		delete(c.sessions, roomID)
		c.mu.Unlock()
		return err
	}

	relayCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	h.session = sess
	h.state = stateActive
	h.lastPrompts = seed
	h.cancel = cancel
	c.mu.Unlock()

	metrics.AudioSessionsActive.Inc()
	go c.relay(relayCtx, roomID, sess)
	return nil
}

// relay pulls audio frames from the upstream session and forwards them to
// the broadcast callback until the session ends or is cancelled. Any
// terminal receive error evicts the session handle; the room itself is
// untouched — the host may restart playback.
func (c *Client) relay(ctx context.Context, roomID types.RoomID, sess upstreamSession) {
	defer metrics.AudioSessionsActive.Dec()
	for {
		frame, err := sess.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logging.Warn(ctx, "audio relay error, evicting session", zap.String("room_id", string(roomID)), zap.Error(err))
			}
			c.evict(roomID)
			return
		}
		if frame == nil {
			continue
		}
		if frame.FilteredPrompt != "" {
			logging.Info(ctx, "prompt filtered upstream", zap.String("room_id", string(roomID)), zap.String("filtered_prompt", frame.FilteredPrompt))
		}
		if len(frame.Audio) > 0 && c.broadcast != nil {
			metrics.AudioChunksRelayed.WithLabelValues(string(roomID)).Inc()
			c.broadcast(roomID, frame.Audio)
		}
	}
}

func (c *Client) evict(roomID types.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.sessions[roomID]; ok {
		if h.session != nil {
			h.session.Close()
		}
		delete(c.sessions, roomID)
	}
}

// UpdatePrompts is the critical smoothing point: bpm changes are clamped to
// ±maxBPMDeltaPerTick, a changed bpm forces reset_context(), then the new
// generation config and prompts are pushed. Any upstream failure is logged;
// audio continues on the prior configuration.
func (c *Client) UpdatePrompts(ctx context.Context, roomID types.RoomID, prompts []types.WeightedPrompt, bpm int, density, brightness float64) {
	c.mu.Lock()
	h, ok := c.sessions[roomID]
	if !ok {
		c.mu.Unlock()
		logging.Warn(ctx, "no audio session for room, skipping prompt update", zap.String("room_id", string(roomID)))
		return
	}
	sess := h.session
	lastBPM := h.bpm
	h.targetBPM = bpm
	c.mu.Unlock()

	appliedBPM := clampStep(lastBPM, bpm, maxBPMDeltaPerTick)

	if appliedBPM != lastBPM {
		if err := sess.ResetContext(ctx); err != nil {
			logging.Warn(ctx, "reset_context failed", zap.String("room_id", string(roomID)), zap.Error(err))
		}
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		if err := sess.SetMusicGenerationConfig(ctx, appliedBPM, density, brightness, defaultTemperature); err != nil {
			return nil, err
		}
		return nil, sess.SetWeightedPrompts(ctx, prompts)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			metrics.CircuitBreakerFailures.WithLabelValues("audiosession").Inc()
		}
		logging.Warn(ctx, "prompt update failed, audio continues on prior config", zap.String("room_id", string(roomID)), zap.Error(err))
		return
	}

	c.mu.Lock()
	h.bpm = appliedBPM
	h.lastPrompts = prompts
	c.mu.Unlock()
}

// OverlayApplausePrompt prepends an applause-overlay prompt to the last base
// prompt and pushes it upstream without touching bpm, bypassing arbitration.
// Invoked by the gateway between ticks.
func (c *Client) OverlayApplausePrompt(ctx context.Context, roomID types.RoomID, overlay types.WeightedPrompt, basePrompt string) {
	c.mu.Lock()
	h, ok := c.sessions[roomID]
	if !ok {
		c.mu.Unlock()
		return
	}
	sess := h.session
	c.mu.Unlock()

	prompts := []types.WeightedPrompt{overlay, {Text: basePrompt, Weight: 1 - overlay.Weight}}
	if err := sess.SetWeightedPrompts(ctx, prompts); err != nil {
		logging.Warn(ctx, "applause overlay push failed", zap.String("room_id", string(roomID)), zap.Error(err))
		return
	}

	c.mu.Lock()
	h.lastPrompts = prompts
	c.mu.Unlock()
}

// StopSession cancels the relay task, issues an upstream stop, closes the
// session, and drops the handle. Tolerates an absent session.
func (c *Client) StopSession(ctx context.Context, roomID types.RoomID) {
	c.mu.Lock()
	h, ok := c.sessions[roomID]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, roomID)
	c.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	if h.session != nil {
		if err := h.session.Stop(ctx); err != nil {
			logging.Warn(ctx, "upstream stop failed", zap.String("room_id", string(roomID)), zap.Error(err))
		}
		h.session.Close()
	}
}

// IsActive reports whether roomID currently has a live audio session.
func (c *Client) IsActive(roomID types.RoomID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.sessions[roomID]
	return ok && h.state == stateActive
}

// clampStep steps current toward target by at most maxDelta.
func clampStep(current, target, maxDelta int) int {
	delta := target - current
	if delta > maxDelta {
		return current + maxDelta
	}
	if delta < -maxDelta {
		return current - maxDelta
	}
	return target
}
