package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Tokens(ctx context.Context) TokenStore
}

// UserStore manages accounts and the legacy single-token credential.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	// FindByLegacyToken looks an account up by the digest of its legacy
	// api_token column.
	FindByLegacyToken(ctx context.Context, digest string) (*User, error)
}

// TokenStore manages scoped tokens, each independently revocable.
type TokenStore interface {
	Create(ctx context.Context, t *Token) error
	Find(ctx context.Context, id string) (*Token, error)
	FindByDigest(ctx context.Context, digest string) (*Token, error)
	ListByUser(ctx context.Context, userID string) ([]*Token, error)
	Revoke(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}
