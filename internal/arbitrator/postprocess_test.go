package arbitrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowdSynth/coordinator/internal/types"
)

func TestParseArbitration_ClampsOutOfRangeValues(t *testing.T) {
	raw := `{"prompts":[{"text":"a","weight":1}],"bpm":500,"density":5,"brightness":-2,"reasoning":"x"}`
	result, err := parseArbitration(raw)
	require.NoError(t, err)
	assert.Equal(t, maxBPM, result.BPM)
	assert.Equal(t, 1.0, result.Density)
	assert.Equal(t, 0.0, result.Brightness)
}

func TestParseArbitration_InvalidJSON(t *testing.T) {
	_, err := parseArbitration("{not json")
	assert.Error(t, err)
}

func TestApplyDrummerOverride_NoDrummerInput(t *testing.T) {
	result := types.ArbitrationResult{BPM: 100}
	out := applyDrummerOverride(result, map[types.RoleType]types.InputPayload{})
	assert.Equal(t, 100, out.BPM)
}

func TestApplyDrummerOverride_ClampsDrummerValue(t *testing.T) {
	bpm := 500
	result := types.ArbitrationResult{BPM: 100}
	out := applyDrummerOverride(result, map[types.RoleType]types.InputPayload{
		types.RoleDrummer: {BPM: &bpm},
	})
	assert.Equal(t, maxBPM, out.BPM)
}
