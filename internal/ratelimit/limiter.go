// Package ratelimit implements per-connection token-bucket throttling for
// the two client message types that can be sent at client-controlled
// frequency: input_update and applause_update.
package ratelimit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CrowdSynth/coordinator/internal/config"
	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Limiter holds the per-message-type rate limiter instances.
//
// Rate limiting on input_update/applause_update is not specified by the
// base design (see spec §9 open questions); this resolves that question
// with an in-memory token bucket keyed by connection_id. A throttled
// message is simply dropped — no wire-visible effect, consistent with the
// "silently ignore" rows of the error-handling table.
type Limiter struct {
	inputUpdate    *limiter.Limiter
	applauseUpdate *limiter.Limiter
}

// NewLimiter creates a new Limiter backed by an in-memory store. No
// horizontal sharding is supported, so a distributed store is unnecessary.
func NewLimiter(cfg *config.Config) (*Limiter, error) {
	inputRate, err := limiter.NewRateFromFormatted(cfg.RateLimitInputUpdate)
	if err != nil {
		return nil, fmt.Errorf("invalid input_update rate: %w", err)
	}

	applauseRate, err := limiter.NewRateFromFormatted(cfg.RateLimitApplauseUpdate)
	if err != nil {
		return nil, fmt.Errorf("invalid applause_update rate: %w", err)
	}

	// One store per message type: the memory store keys its counters by
	// connection id alone, so a shared store would merge the two counts.
	return &Limiter{
		inputUpdate:    limiter.New(memory.NewStore(), inputRate),
		applauseUpdate: limiter.New(memory.NewStore(), applauseRate),
	}, nil
}

// AllowInputUpdate reports whether an input_update from connectionID may
// proceed. Fails open on store error: throttling must never interrupt
// playback.
func (l *Limiter) AllowInputUpdate(ctx context.Context, connectionID string) bool {
	return l.allow(ctx, l.inputUpdate, connectionID, "input_update")
}

// AllowApplauseUpdate reports whether an applause_update from connectionID
// may proceed.
func (l *Limiter) AllowApplauseUpdate(ctx context.Context, connectionID string) bool {
	return l.allow(ctx, l.applauseUpdate, connectionID, "applause_update")
}

func (l *Limiter) allow(ctx context.Context, lim *limiter.Limiter, connectionID, endpoint string) bool {
	res, err := lim.Get(ctx, connectionID)
	if err != nil {
		logging.Error(ctx, "rate limiter store failed", zap.Error(err), zap.String("endpoint", endpoint))
		return true
	}

	metrics.RateLimitRequests.WithLabelValues(endpoint).Inc()

	if res.Reached {
		metrics.RateLimitExceeded.WithLabelValues(endpoint, "connection").Inc()
		return false
	}

	return true
}
