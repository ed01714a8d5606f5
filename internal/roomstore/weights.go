package roomstore

import (
	"math"
	"time"

	"github.com/CrowdSynth/coordinator/internal/types"
)

// computeInfluenceWeights applies the half-life decay formula to every role
// that has submitted input, then normalises to sum 1.0 and rounds to two
// decimals: raw[r] = max(0.05, 2^(-age_seconds/30)).
func computeInfluenceWeights(inputs map[types.RoleType]inputEntry, now time.Time) map[types.RoleType]float64 {
	if len(inputs) == 0 {
		return map[types.RoleType]float64{}
	}

	raw := make(map[types.RoleType]float64, len(inputs))
	var sum float64
	for role, entry := range inputs {
		age := now.Sub(entry.At).Seconds()
		w := math.Max(minInfluenceWeight, math.Pow(2, -age/influenceHalfLifeS))
		raw[role] = w
		sum += w
	}

	out := make(map[types.RoleType]float64, len(raw))
	if sum == 0 {
		return out
	}
	for role, w := range raw {
		out[role] = round(w/sum, 2)
	}
	return out
}

// normalizePromptWeights renormalises weights to sum 1.0, rounded to three
// decimals. Used on every assignment of ActivePrompts per spec's Room
// invariant.
func normalizePromptWeights(prompts []types.WeightedPrompt) []types.WeightedPrompt {
	if len(prompts) == 0 {
		return prompts
	}

	var sum float64
	for _, p := range prompts {
		sum += p.Weight
	}
	if sum == 0 {
		// Degenerate input: spread weight evenly rather than divide by zero.
		even := 1.0 / float64(len(prompts))
		out := make([]types.WeightedPrompt, len(prompts))
		for i, p := range prompts {
			out[i] = types.WeightedPrompt{Text: p.Text, Weight: round(even, 3)}
		}
		return out
	}

	out := make([]types.WeightedPrompt, len(prompts))
	for i, p := range prompts {
		out[i] = types.WeightedPrompt{Text: p.Text, Weight: round(p.Weight/sum, 3)}
	}
	return out
}

func round(v float64, decimals int) float64 {
	mult := math.Pow(10, float64(decimals))
	return math.Round(v*mult) / mult
}
