package utils

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureToken(t *testing.T) {
	token := GenerateSecureToken(32)
	assert.Len(t, token, 64)

	_, err := hex.DecodeString(token)
	require.NoError(t, err, "token must be valid hex")
}

func TestTokensAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := GenerateSessionToken()
		require.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}

func TestResetAndSessionTokenLength(t *testing.T) {
	assert.Len(t, GenerateResetToken(), 64)
	assert.Len(t, GenerateSessionToken(), 64)
}
