package arbitrator

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/CrowdSynth/coordinator/internal/types"
)

const (
	minBPM = 60
	maxBPM = 200
)

// defaultResult is the hard-coded fallback used when no cached previous
// result exists for a room and arbitration fails.
var defaultResult = types.ArbitrationResult{
	Prompts:    []types.WeightedPrompt{{Text: "ambient electronic music with soft synth pads", Weight: 1.0}},
	BPM:        100,
	Density:    0.5,
	Brightness: 0.5,
	Reasoning:  "Default fallback",
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)```")

type rawArbitration struct {
	Prompts []struct {
		Text   string  `json:"text"`
		Weight float64 `json:"weight"`
	} `json:"prompts"`
	BPM        json.Number `json:"bpm"`
	Density    float64     `json:"density"`
	Brightness float64     `json:"brightness"`
	Reasoning  string      `json:"reasoning"`
}

// stripCodeFence removes a surrounding ```json ... ``` wrapper if present.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}

// parseArbitration parses the oracle's raw response text into an
// ArbitrationResult, applying weight renormalisation (3 decimals) and
// density/brightness/bpm clamping. It does not apply the drummer override;
// callers do that with the room's current inputs.
func parseArbitration(raw string) (types.ArbitrationResult, error) {
	text := stripCodeFence(raw)

	var parsed rawArbitration
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return types.ArbitrationResult{}, err
	}

	prompts := make([]types.WeightedPrompt, len(parsed.Prompts))
	for i, p := range parsed.Prompts {
		prompts[i] = types.WeightedPrompt{Text: p.Text, Weight: p.Weight}
	}
	prompts = normalizeWeights(prompts)

	bpmFloat, err := parsed.BPM.Float64()
	if err != nil {
		return types.ArbitrationResult{}, err
	}

	return types.ArbitrationResult{
		Prompts:    prompts,
		BPM:        clampInt(int(bpmFloat), minBPM, maxBPM),
		Density:    clampFloat(parsed.Density, 0, 1),
		Brightness: clampFloat(parsed.Brightness, 0, 1),
		Reasoning:  parsed.Reasoning,
	}, nil
}

// applyDrummerOverride forces bpm to the drummer's submitted value, still
// clamped, when the drummer has an active input.
func applyDrummerOverride(result types.ArbitrationResult, inputs map[types.RoleType]types.InputPayload) types.ArbitrationResult {
	drummer, ok := inputs[types.RoleDrummer]
	if !ok || drummer.BPM == nil {
		return result
	}
	result.BPM = clampInt(*drummer.BPM, minBPM, maxBPM)
	return result
}

func normalizeWeights(prompts []types.WeightedPrompt) []types.WeightedPrompt {
	if len(prompts) == 0 {
		return prompts
	}
	var sum float64
	for _, p := range prompts {
		sum += p.Weight
	}
	if sum <= 0 {
		return prompts
	}
	out := make([]types.WeightedPrompt, len(prompts))
	for i, p := range prompts {
		out[i] = types.WeightedPrompt{Text: p.Text, Weight: round3(p.Weight / sum)}
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
