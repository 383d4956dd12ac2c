package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	tokenPrefix    = "kv"
	tokenByteCount = 24
)

// MintTokenString generates a new prefixed bearer token. The prefix makes
// leaked tokens greppable in logs and repositories.
func MintTokenString() (string, error) {
	buf := make([]byte, tokenByteCount)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token bytes: %w", err)
	}
	return tokenPrefix + "_" + hex.EncodeToString(buf), nil
}

// DigestToken returns the hex SHA-256 digest under which a token is stored.
// Plaintext tokens never touch the database.
func DigestToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
