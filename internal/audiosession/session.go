// Package audiosession owns the upstream generative-audio streaming session
// for each playing room: one duplex connection per room, smoothed prompt and
// bpm updates, and a background relay that forwards audio frames to the
// gateway's broadcast fan-out.
package audiosession

import (
	"context"

	"github.com/CrowdSynth/coordinator/internal/types"
)

// upstreamSession is the external collaborator contract from spec's external
// interfaces section: a duplex session exposing generation-config updates,
// weighted-prompt pushes, context reset, transport control, and a receive
// loop yielding audio frames.
type upstreamSession interface {
	SetMusicGenerationConfig(ctx context.Context, bpm int, density, brightness, temperature float64) error
	SetWeightedPrompts(ctx context.Context, prompts []types.WeightedPrompt) error
	ResetContext(ctx context.Context) error
	Play(ctx context.Context) error
	Stop(ctx context.Context) error
	Close() error
	// Receive blocks until the next frame or the session ends, returning a
	// nil frame and a non-nil error on terminal failure or closure.
	Receive(ctx context.Context) (*Frame, error)
}

// Frame is one unit yielded by the upstream receive loop.
type Frame struct {
	Audio          []byte
	FilteredPrompt string
}

// sessionFactory opens a new upstream session for a room; swapped out in
// tests.
type sessionFactory func(ctx context.Context, roomID types.RoomID, initialBPM int) (upstreamSession, error)

// BroadcastFunc forwards a raw audio chunk for roomID to that room's
// connected clients. Supplied by the gateway at construction time.
type BroadcastFunc func(roomID types.RoomID, audio []byte)
