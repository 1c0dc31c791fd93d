package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifier(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(verifier)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, verifier, other)
}

func TestCodeChallenge(t *testing.T) {
	// Known vector from RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", CodeChallenge(verifier))
}

func TestGenerateStateToken(t *testing.T) {
	state, err := GenerateStateToken()
	require.NoError(t, err)

	raw, err := hex.DecodeString(state)
	require.NoError(t, err)
	assert.Len(t, raw, 16)

	other, err := GenerateStateToken()
	require.NoError(t, err)
	assert.NotEqual(t, state, other)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
	assert.False(t, ConstantTimeEqual("", "abc"))
	assert.True(t, ConstantTimeEqual("", ""))
}
