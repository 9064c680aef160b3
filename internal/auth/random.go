package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateOpaqueToken returns size random bytes encoded as unpadded base64url.
func GenerateOpaqueToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
