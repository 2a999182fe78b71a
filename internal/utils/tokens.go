package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomToken returns n bytes of cryptographic randomness as a URL-safe
// base64 string, used for CSRF tokens.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}
