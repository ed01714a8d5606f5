package ticker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/CrowdSynth/coordinator/internal/roomstore"
	"github.com/CrowdSynth/coordinator/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeArbitrator struct {
	mu       sync.Mutex
	errs     []error
	results  []types.ArbitrationResult
	calls    int
	fallback types.ArbitrationResult
}

func (f *fakeArbitrator) Arbitrate(ctx context.Context, roomID types.RoomID, inputs map[types.RoleType]types.InputPayload, bpm int, density, brightness float64) (types.ArbitrationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return f.fallback, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.fallback, nil
}

func (f *fakeArbitrator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeAudioSession struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAudioSession) UpdatePrompts(ctx context.Context, roomID types.RoomID, prompts []types.WeightedPrompt, bpm int, density, brightness float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
}

func newTestRoom(t *testing.T) (*roomstore.Store, *roomstore.Room) {
	t.Helper()
	store := roomstore.NewStore()
	room, err := store.CreateRoom("host-1", "iphone", "Test Room")
	require.NoError(t, err)
	room.SetPlaying(true)
	return store, room
}

func TestTick_SkipsWhenNotPlaying(t *testing.T) {
	_, room := newTestRoom(t)
	room.SetPlaying(false)

	arb := &fakeArbitrator{fallback: types.ArbitrationResult{BPM: 120, Density: 0.5, Brightness: 0.5}}
	audio := &fakeAudioSession{}
	s := NewScheduler(nil, arb, audio, 4*time.Second, nil, nil)

	failures := 0
	require.NoError(t, s.tick(context.Background(), room, &failures))
	assert.Equal(t, 0, arb.callCount())
}

func TestTick_SingleFailureLeavesStateUnchangedAndSuppressesError(t *testing.T) {
	_, room := newTestRoom(t)

	arb := &fakeArbitrator{
		errs:     []error{errors.New("upstream unavailable")},
		fallback: types.ArbitrationResult{BPM: 100, Density: 0.5, Brightness: 0.5, Reasoning: "fallback"},
	}
	audio := &fakeAudioSession{}

	var errorBroadcasts int
	var mu sync.Mutex
	s := NewScheduler(nil, arb, audio, 4*time.Second, nil, func(roomID types.RoomID, message string) {
		mu.Lock()
		defer mu.Unlock()
		errorBroadcasts++
	})

	before := room.StateUpdateMessage("")

	failures := 0
	require.NoError(t, s.tick(context.Background(), room, &failures))

	after := room.StateUpdateMessage("")
	assert.Equal(t, before.ActivePrompts, after.ActivePrompts)
	assert.Equal(t, before.BPM, after.BPM)
	assert.Equal(t, before.Density, after.Density)
	assert.Equal(t, before.Brightness, after.Brightness)
	assert.Equal(t, 0, audio.calls)

	assert.Equal(t, 1, failures)
	mu.Lock()
	assert.Equal(t, 0, errorBroadcasts)
	mu.Unlock()
}

func TestTick_ThreeConsecutiveFailuresBroadcastsStreamErrorAndResets(t *testing.T) {
	_, room := newTestRoom(t)

	arb := &fakeArbitrator{
		errs: []error{
			errors.New("fail 1"),
			errors.New("fail 2"),
			errors.New("fail 3"),
		},
		fallback: types.ArbitrationResult{BPM: 100, Density: 0.5, Brightness: 0.5},
	}
	audio := &fakeAudioSession{}

	var errorBroadcasts int
	var messages []string
	var mu sync.Mutex
	s := NewScheduler(nil, arb, audio, 4*time.Second, nil, func(roomID types.RoomID, message string) {
		mu.Lock()
		defer mu.Unlock()
		errorBroadcasts++
		messages = append(messages, message)
	})

	failures := 0
	require.NoError(t, s.tick(context.Background(), room, &failures))
	assert.Equal(t, 1, failures)
	require.NoError(t, s.tick(context.Background(), room, &failures))
	assert.Equal(t, 2, failures)
	require.NoError(t, s.tick(context.Background(), room, &failures))

	assert.Equal(t, 0, failures, "counter resets after hitting the threshold")
	mu.Lock()
	assert.Equal(t, 1, errorBroadcasts)
	require.Len(t, messages, 1)
	mu.Unlock()
}

func TestTick_SuccessUpdatesStateAndBroadcasts(t *testing.T) {
	_, room := newTestRoom(t)

	result := types.ArbitrationResult{
		Prompts:    []types.WeightedPrompt{{Text: "driving techno", Weight: 1.0}},
		BPM:        130,
		Density:    0.7,
		Brightness: 0.6,
		Reasoning:  "drummer locked the tempo",
	}
	arb := &fakeArbitrator{results: []types.ArbitrationResult{result}}
	audio := &fakeAudioSession{}

	var broadcasts []types.StateUpdate
	var mu sync.Mutex
	s := NewScheduler(nil, arb, audio, 4*time.Second, func(roomID types.RoomID, msg types.StateUpdate) {
		mu.Lock()
		defer mu.Unlock()
		broadcasts = append(broadcasts, msg)
	}, nil)

	room.UpdateInput(types.RoleDrummer, types.InputPayload{BPM: intPtr(130)})

	failures := 0
	require.NoError(t, s.tick(context.Background(), room, &failures))

	bpm, density, brightness := room.Snapshot()
	assert.Equal(t, 130, bpm)
	assert.InDelta(t, 0.7, density, 0.001)
	assert.InDelta(t, 0.6, brightness, 0.001)

	mu.Lock()
	require.Len(t, broadcasts, 1)
	assert.Equal(t, "drummer locked the tempo", broadcasts[0].GeminiReasoning)
	mu.Unlock()

	assert.Equal(t, 1, audio.calls)
	assert.Empty(t, room.CurrentInputsSnapshot(), "inputs are cleared after a successful tick")
}

func TestStartStop_CancelsLoop(t *testing.T) {
	_, room := newTestRoom(t)

	arb := &fakeArbitrator{fallback: types.ArbitrationResult{BPM: 100, Density: 0.5, Brightness: 0.5}}
	audio := &fakeAudioSession{}
	s := NewScheduler(nil, arb, audio, 20*time.Millisecond, nil, nil)

	s.Start(room)
	assert.Eventually(t, func() bool { return arb.callCount() > 0 }, time.Second, 5*time.Millisecond)

	s.Stop(room.ID)
	count := arb.callCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, arb.callCount(), "no further ticks run after Stop")
}

func intPtr(v int) *int { return &v }
