// Package arbitrator turns a snapshot of per-role crowd inputs into a small
// set of weighted prompts plus musical knobs via an external LLM oracle. It
// is resilient by construction: any failure of the oracle falls back to the
// room's previous result (or a hard-coded default), and arbitration is never
// allowed to abort the caller's tick loop.
package arbitrator

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/CrowdSynth/coordinator/internal/logging"
	"github.com/CrowdSynth/coordinator/internal/metrics"
	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	modelName      = "gemini-2.5-flash"
	temperature    = 0.7
	maxOutputTokens = 2000
	cacheSize      = 256
)

// generator is the minimal oracle surface the Client depends on, so tests
// can substitute a fake without touching genai.
type generator interface {
	Generate(ctx context.Context, systemInstruction, userText string) (string, error)
}

// Client is the Arbitrator client component (spec component #1).
type Client struct {
	gen     generator
	breaker *gobreaker.CircuitBreaker
	cache   *lru.Cache[types.RoomID, types.ArbitrationResult]
}

// NewClient constructs an arbitrator client backed by the genai SDK. apiKey
// must be non-empty; the caller (config validation) is responsible for
// that invariant at startup.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("arbitrator: creating genai client: %w", err)
	}
	return newClient(&geminiGenerator{client: genaiClient})
}

func newClient(gen generator) (*Client, error) {
	cache, err := lru.New[types.RoomID, types.ArbitrationResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("arbitrator: creating cache: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        "arbitrator",
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
			metrics.CircuitBreakerState.WithLabelValues("arbitrator").Set(stateVal)
		},
	}

	return &Client{
		gen:     gen,
		breaker: gobreaker.NewCircuitBreaker(settings),
		cache:   cache,
	}, nil
}

// Arbitrate synthesises inputs into a weighted-prompt arbitration result.
// It never returns an unusable result: on any failure it falls back to the
// room's cached previous result, or the hard-coded default. The returned
// error is informational only — the tick scheduler logs it, it never stops
// the loop.
func (c *Client) Arbitrate(ctx context.Context, roomID types.RoomID, inputs map[types.RoleType]types.InputPayload, bpm int, density, brightness float64) (types.ArbitrationResult, error) {
	if len(inputs) == 0 {
		return c.previousOrDefault(roomID), nil
	}

	previous, hasPrevious := c.cache.Get(roomID)
	var previousPtr *types.ArbitrationResult
	if hasPrevious {
		previousPtr = &previous
	}

	userText := formatInputs(inputs, bpm, density, brightness, previousPtr)

	result, err := c.generateWithRetry(ctx, userText)
	if err != nil {
		logging.Warn(ctx, "arbitration failed, using fallback", zap.String("room_id", string(roomID)), zap.Error(err))
		metrics.ArbitrationsTotal.WithLabelValues("fallback").Inc()
		return c.previousOrDefault(roomID), err
	}

	result = applyDrummerOverride(result, inputs)
	c.cache.Add(roomID, result)
	metrics.ArbitrationsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// generateWithRetry calls the oracle and parses its response, retrying the
// parse exactly once on a JSON error per the post-processing contract.
func (c *Client) generateWithRetry(ctx context.Context, userText string) (types.ArbitrationResult, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := c.breaker.Execute(func() (interface{}, error) {
			return c.gen.Generate(ctx, systemInstruction, userText)
		})
		if err != nil {
			return types.ArbitrationResult{}, fmt.Errorf("arbitrator: generation failed: %w", err)
		}

		result, parseErr := parseArbitration(raw.(string))
		if parseErr == nil {
			return result, nil
		}
		lastErr = parseErr
	}
	return types.ArbitrationResult{}, fmt.Errorf("arbitrator: parse failed after retry: %w", lastErr)
}

func (c *Client) previousOrDefault(roomID types.RoomID) types.ArbitrationResult {
	if prev, ok := c.cache.Get(roomID); ok {
		return prev
	}
	return defaultResult
}

// geminiGenerator is the genai-backed implementation of generator.
type geminiGenerator struct {
	client *genai.Client
}

func (g *geminiGenerator) Generate(ctx context.Context, systemInstruction, userText string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, modelName, genai.Text(userText), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(temperature)),
		MaxOutputTokens:   maxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
