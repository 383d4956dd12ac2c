package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the coarse account role. Legacy tokens carry the whole role; scoped
// tokens carry an explicit permission subset.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole canonicalizes a raw role string.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(raw))); r {
	case RoleUser, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, raw)
}

// User represents an account. APITokenDigest is the legacy single-token
// credential; modern credentials live in the tokens table.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	IsActive       bool      `json:"is_active"`
	APITokenDigest string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Token is a scoped bearer credential. Only the SHA-256 digest of the token
// string is persisted; the plaintext is shown exactly once at mint time.
type Token struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Name        string       `json:"name"`
	Digest      string       `json:"-"`
	Permissions []Permission `json:"permissions"`
	IsActive    bool         `json:"is_active"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time   `json:"last_used_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Expired reports whether the token's expiry, if any, is in the past.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// TokenSource records which credential scheme authenticated a request.
type TokenSource string

const (
	SourceScoped TokenSource = "scoped"
	SourceLegacy TokenSource = "legacy"
)
