package arbitrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CrowdSynth/coordinator/internal/types"
)

// systemInstruction is the fixed oracle instruction: 2-3 prompts, weights
// summing to 1.0, bpm in [60,160], density/brightness in [0,1], pure JSON.
const systemInstruction = `You are a real-time music director for a crowd-controlled generative music system.
Every few seconds you receive inputs from multiple people each controlling a different
dimension of the music. Your job is to synthesize their inputs into 2-3 weighted
prompts that:
1. Honor the dominant crowd preference
2. Blend conflicting inputs musically coherently
3. Maintain energy continuity — don't flip completely from one style to another in one step
4. Keep prompts descriptive: include genre, instruments, mood, and energy level

Always return ONLY valid JSON — no markdown, no backticks, no explanation outside JSON.
Exact format:
{
  "prompts": [
    { "text": "...", "weight": 0.6 },
    { "text": "...", "weight": 0.4 }
  ],
  "bpm": 100,
  "density": 0.5,
  "brightness": 0.5,
  "reasoning": "one sentence"
}

Rules:
- 2 or 3 prompts max
- Weights must sum exactly to 1.0
- bpm must be an integer between 60 and 160
- density must be a decimal float between 0.0 and 1.0
- brightness must be a decimal float between 0.0 and 1.0`

// formatInputs renders the crowd-input snapshot, current musical state, and
// the previous arbitration's prompts (for continuity) as the user text sent
// to the oracle alongside systemInstruction.
func formatInputs(inputs map[types.RoleType]types.InputPayload, bpm int, density, brightness float64, previous *types.ArbitrationResult) string {
	var b strings.Builder
	b.WriteString("Current crowd inputs:\n")

	roles := make([]string, 0, len(inputs))
	for role := range inputs {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for _, role := range roles {
		fmt.Fprintf(&b, "  - %s: %s\n", role, describePayload(inputs[types.RoleType(role)]))
	}

	fmt.Fprintf(&b, "\nCurrent music state: BPM=%d, density=%.2f, brightness=%.2f\n", bpm, density, brightness)

	if previous != nil && len(previous.Prompts) > 0 {
		b.WriteString("\nPrevious prompts (maintain continuity from these):\n")
		for _, p := range previous.Prompts {
			fmt.Fprintf(&b, "  - %q (weight %.2f)\n", p.Text, p.Weight)
		}
	}

	b.WriteString("\nSynthesize 2-3 new weighted prompts that smoothly evolve from the previous ones.")
	return b.String()
}

func describePayload(p types.InputPayload) string {
	var parts []string
	if p.BPM != nil {
		parts = append(parts, fmt.Sprintf("bpm=%d", *p.BPM))
	}
	if p.Mood != nil {
		parts = append(parts, fmt.Sprintf("mood=%s", *p.Mood))
	}
	if p.Genre != nil {
		parts = append(parts, fmt.Sprintf("genre=%s", *p.Genre))
	}
	if p.Instrument != nil {
		parts = append(parts, fmt.Sprintf("instrument=%s", *p.Instrument))
	}
	if p.Density != nil {
		parts = append(parts, fmt.Sprintf("density=%.2f", *p.Density))
	}
	if p.Brightness != nil {
		parts = append(parts, fmt.Sprintf("brightness=%.2f", *p.Brightness))
	}
	if p.CustomPrompt != nil {
		parts = append(parts, fmt.Sprintf("custom_prompt=%q", *p.CustomPrompt))
	}
	if len(parts) == 0 {
		return "(empty)"
	}
	return strings.Join(parts, ", ")
}
