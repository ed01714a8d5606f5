// Package ticker drives each playing room's periodic reconciliation: every
// tick interval it arbitrates the room's current inputs, pushes the result
// upstream to the audio session, and broadcasts the refreshed state.
package ticker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/CrowdSynth/coordinator/internal/roomstore"
	"github.com/CrowdSynth/coordinator/internal/types"
)

const consecutiveFailureThreshold = 3

// Arbitrator is the subset of the arbitrator client the scheduler depends
// on, so tests can substitute a fake.
type Arbitrator interface {
	Arbitrate(ctx context.Context, roomID types.RoomID, inputs map[types.RoleType]types.InputPayload, bpm int, density, brightness float64) (types.ArbitrationResult, error)
}

// AudioSession is the subset of the audio-session client the scheduler
// depends on.
type AudioSession interface {
	UpdatePrompts(ctx context.Context, roomID types.RoomID, prompts []types.WeightedPrompt, bpm int, density, brightness float64)
}

// StateBroadcastFunc fans out a room's refreshed state_update, with the
// arbitrator's rationale text attached.
type StateBroadcastFunc func(roomID types.RoomID, msg types.StateUpdate)

// ErrorBroadcastFunc fans out a stream_error message after repeated
// consecutive arbitration failures.
type ErrorBroadcastFunc func(roomID types.RoomID, message string)

// Scheduler is the Tick scheduler component (spec component #4): one
// 4-second control loop per playing room.
type Scheduler struct {
	store    *roomstore.Store
	arb      Arbitrator
	audio    AudioSession
	interval time.Duration

	broadcastState StateBroadcastFunc
	broadcastError ErrorBroadcastFunc

	mu      sync.Mutex
	cancels map[types.RoomID]context.CancelFunc
}

// NewScheduler constructs a tick scheduler.
func NewScheduler(store *roomstore.Store, arb Arbitrator, audio AudioSession, interval time.Duration, broadcastState StateBroadcastFunc, broadcastError ErrorBroadcastFunc) *Scheduler {
	return &Scheduler{
		store:          store,
		arb:            arb,
		audio:          audio,
		interval:       interval,
		broadcastState: broadcastState,
		broadcastError: broadcastError,
		cancels:        make(map[types.RoomID]context.CancelFunc),
	}
}

// Start begins the tick loop for roomID, transitioning it STOPPED→RUNNING.
// A no-op if a loop is already running for that room.
func (s *Scheduler) Start(room *roomstore.Room) {
	s.mu.Lock()
	if _, running := s.cancels[room.ID]; running {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(room.Ctx)
	s.cancels[room.ID] = cancel
	s.mu.Unlock()

	go s.run(ctx, room)
}

// Stop cancels roomID's tick loop, transitioning RUNNING→STOPPED. The
// in-flight iteration's arbitrator call is allowed to complete, but its
// result is discarded if the room has since been destroyed.
func (s *Scheduler) Stop(roomID types.RoomID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[roomID]; ok {
		cancel()
		delete(s.cancels, roomID)
	}
}

func (s *Scheduler) run(ctx context.Context, room *roomstore.Room) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	consecutiveFailures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if room.Destroyed() {
				return
			}
			if err := s.tick(ctx, room, &consecutiveFailures); err != nil {
				logging.Warn(ctx, "tick iteration error", zap.String("room_id", string(room.ID)), zap.Error(err))
			}
		}
	}
}

// tick runs one reconciliation iteration per the scheduler's seven steps.
func (s *Scheduler) tick(ctx context.Context, room *roomstore.Room, consecutiveFailures *int) error {
	if !room.IsPlayingNow() {
		return nil
	}

	room.Lock()
	room.ApplyEnergyKnobsLocked()
	room.Unlock()

	inputs := room.CurrentInputsSnapshot()
	bpm, density, brightness := room.Snapshot()

	// The arbitrator call is detached from Stop's cancellation so an
	// in-flight call can finish; its result is dropped below if the room has
	// been destroyed meanwhile.
	result, err := s.arb.Arbitrate(context.WithoutCancel(ctx), room.ID, inputs, bpm, density, brightness)
	if err != nil {
		*consecutiveFailures++
		metrics.TickErrors.WithLabelValues(string(room.ID)).Inc()
		if *consecutiveFailures >= consecutiveFailureThreshold {
			if s.broadcastError != nil {
				s.broadcastError(room.ID, "music arbitration is temporarily unavailable")
			}
			*consecutiveFailures = 0
		}
		// A failed arbitration leaves the room's prompts and knobs as they
		// were: nothing is pushed upstream or applied to the room.
		return nil
	}
	*consecutiveFailures = 0

	if room.Destroyed() {
		return nil
	}

	start := time.Now()
	s.audio.UpdatePrompts(ctx, room.ID, result.Prompts, result.BPM, result.Density, result.Brightness)
	room.UpdateAfterArbitration(result)
	metrics.TickDuration.WithLabelValues(string(room.ID)).Observe(time.Since(start).Seconds())

	if room.Destroyed() {
		return nil
	}

	if s.broadcastState != nil {
		s.broadcastState(room.ID, room.StateUpdateMessage(result.Reasoning))
	}

	room.ClearInputs()
	return nil
}
