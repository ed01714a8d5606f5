package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedOrigins_WildcardDisablesCheck(t *testing.T) {
	assert.Nil(t, allowedOrigins("*"))
	assert.Nil(t, allowedOrigins(""))
}

func TestValidateOrigin_MatchesConfiguredOriginAndLocalhost(t *testing.T) {
	allowed := allowedOrigins("https://app.crowdsynth.example")

	assert.True(t, validateOrigin("https://app.crowdsynth.example", allowed))
	assert.True(t, validateOrigin("http://localhost:3000", allowed))
	assert.False(t, validateOrigin("https://evil.example", allowed))
	assert.True(t, validateOrigin("", allowed), "missing Origin header is allowed for non-browser clients")
}

func TestValidateOrigin_NilAllowlistAllowsEverything(t *testing.T) {
	assert.True(t, validateOrigin("https://anything.example", nil))
}
