package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateSecureToken returns a hex-encoded random token of byteLen random bytes.
func GenerateSecureToken(byteLen int) string {
	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(b)
}

// GenerateResetToken returns a token for password reset links (256 bits).
func GenerateResetToken() string {
	return GenerateSecureToken(32)
}

// GenerateSessionToken returns an opaque session identifier (256 bits).
func GenerateSessionToken() string {
	return GenerateSecureToken(32)
}
