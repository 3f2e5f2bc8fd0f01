package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// TokenBytes is the entropy of an issued auth token (128 bits).
const TokenBytes = 16

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// RandomToken returns a new opaque auth token: TokenBytes of crypto/rand
// entropy, lowercase hex encoded.
func RandomToken() (string, error) {
	b, err := RandomBytes(TokenBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
