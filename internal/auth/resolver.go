package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"keyvault.org/internal/obs"
)

// Resolver turns a raw bearer token into a Principal. Two historical schemes
// are unified behind it: the scoped per-token table and the legacy single
// token column on the user record.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (r *Resolver) WithClock(fn func() time.Time) *Resolver {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Resolve authenticates a bearer token.
//
// The scoped-token table is consulted first: a user holding both a legacy
// token and scoped tokens must get the narrower permission set when
// presenting a scoped token, while the legacy token keeps working for older
// clients. Every failure collapses to ErrInvalidToken so the caller cannot
// probe which table matched.
func (r *Resolver) Resolve(ctx context.Context, bearer string) (Principal, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return Principal{}, ErrInvalidToken
	}
	digest := DigestToken(bearer)
	now := r.now().UTC()

	token, err := r.store.Tokens(ctx).FindByDigest(ctx, digest)
	switch {
	case err == nil:
		if !token.IsActive || token.Expired(now) {
			return Principal{}, ErrInvalidToken
		}
		user, err := r.store.Users(ctx).Find(ctx, token.UserID)
		if err != nil || !user.IsActive {
			return Principal{}, ErrInvalidToken
		}
		r.touchLastUsed(ctx, token.ID, now)
		return NewPrincipal(user, SourceScoped, token.Permissions), nil
	case !errors.Is(err, ErrNotFound):
		return Principal{}, err
	}

	user, err := r.store.Users(ctx).FindByLegacyToken(ctx, digest)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, ErrInvalidToken
	}
	return NewPrincipal(user, SourceLegacy, RolePermissions(user.Role)), nil
}

// touchLastUsed records token usage. Best effort: the write runs on a
// detached context so a client disconnect cannot cancel it, and a failure is
// logged without affecting the authorization decision.
func (r *Resolver) touchLastUsed(ctx context.Context, tokenID string, at time.Time) {
	detached := context.WithoutCancel(ctx)
	if err := r.store.Tokens(detached).TouchLastUsed(detached, tokenID, at); err != nil {
		obs.LogRequest(map[string]any{
			"level":    "warn",
			"msg":      "token last_used_at update failed",
			"token_id": tokenID,
			"error":    err.Error(),
		})
	}
}
