package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TokenService manages the lifecycle of scoped tokens.
type TokenService struct {
	store Store
	now   func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(store Store) (*TokenService, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	return &TokenService{store: store, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (s *TokenService) WithClock(fn func() time.Time) *TokenService {
	if fn != nil {
		s.now = fn
	}
	return s
}

// Create mints a scoped token for the principal. The plaintext token is
// returned exactly once; only its digest is stored. A caller cannot mint a
// token broader than its own permission set.
func (s *TokenService) Create(ctx context.Context, principal Principal, name string, rawPerms []string, expiresAt *time.Time) (string, *Token, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: token name is required", ErrInvalidInput)
	}
	perms, err := ParsePermissions(rawPerms)
	if err != nil {
		return "", nil, err
	}
	if len(perms) == 0 {
		return "", nil, fmt.Errorf("%w: at least one permission is required", ErrInvalidInput)
	}
	for _, p := range perms {
		if !principal.HasPermission(p) {
			return "", nil, fmt.Errorf("%w: cannot grant %s", ErrPermissionDenied, p)
		}
	}
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return "", nil, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}

	plaintext, err := MintTokenString()
	if err != nil {
		return "", nil, err
	}
	token := &Token{
		UserID:      principal.UserID,
		Name:        name,
		Digest:      DigestToken(plaintext),
		Permissions: perms,
		IsActive:    true,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.Tokens(ctx).Create(ctx, token); err != nil {
		return "", nil, err
	}
	return plaintext, token, nil
}

// List returns the principal's scoped tokens, digests never included in the
// serialized form.
func (s *TokenService) List(ctx context.Context, principal Principal) ([]*Token, error) {
	return s.store.Tokens(ctx).ListByUser(ctx, principal.UserID)
}

// Revoke deactivates one token. Admins may revoke any token; other callers
// only their own, with foreign tokens reported as not found rather than
// forbidden.
func (s *TokenService) Revoke(ctx context.Context, principal Principal, tokenID string) error {
	token, err := s.store.Tokens(ctx).Find(ctx, tokenID)
	if err != nil {
		return err
	}
	if token.UserID != principal.UserID && principal.Role != RoleAdmin {
		return ErrNotFound
	}
	return s.store.Tokens(ctx).Revoke(ctx, tokenID)
}
