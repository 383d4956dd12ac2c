package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testTokenService(t *testing.T) (*TokenService, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewTokenService(store)
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}

func principalWith(id string, role Role, perms ...Permission) Principal {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Principal{UserID: id, Role: role, Permissions: set, IsActive: true}
}

func TestTokenCreateStoresDigestOnly(t *testing.T) {
	svc, store := testTokenService(t)
	ctx := context.Background()
	owner := principalWith("u1", RoleUser, PermKeysRead, PermTokensManage)

	plaintext, token, err := svc.Create(ctx, owner, "ci", []string{"keys:read"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plaintext, "kv_") {
		t.Fatalf("plaintext should be prefixed: %q", plaintext)
	}
	if token.Digest == plaintext {
		t.Fatal("plaintext must not be stored")
	}

	stored, err := store.Tokens(ctx).Find(ctx, token.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Digest != DigestToken(plaintext) {
		t.Fatal("stored digest does not match the plaintext")
	}
}

func TestTokenCreateValidation(t *testing.T) {
	svc, _ := testTokenService(t)
	ctx := context.Background()
	owner := principalWith("u1", RoleUser, PermKeysRead)

	if _, _, err := svc.Create(ctx, owner, "", []string{"keys:read"}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty name: expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.Create(ctx, owner, "t", nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("no permissions: expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.Create(ctx, owner, "t", []string{"keys:frobnicate"}, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown permission: expected ErrInvalidInput, got %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if _, _, err := svc.Create(ctx, owner, "t", []string{"keys:read"}, &past); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("past expiry: expected ErrInvalidInput, got %v", err)
	}
}

func TestTokenCreateCannotEscalate(t *testing.T) {
	svc, _ := testTokenService(t)
	ctx := context.Background()
	reader := principalWith("u1", RoleUser, PermKeysRead)

	if _, _, err := svc.Create(ctx, reader, "writer", []string{"keys:write"}, nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestTokenCreateAdminAllImpliesEverything(t *testing.T) {
	svc, _ := testTokenService(t)
	ctx := context.Background()
	admin := principalWith("root", RoleAdmin, PermAdminAll)

	if _, _, err := svc.Create(ctx, admin, "any", []string{"keys:write", "tokens:manage"}, nil); err != nil {
		t.Fatalf("admin:all should cover every grant: %v", err)
	}
}

func TestTokenRevokeOwnership(t *testing.T) {
	svc, store := testTokenService(t)
	ctx := context.Background()
	owner := principalWith("u1", RoleUser, PermKeysRead)

	_, token, err := svc.Create(ctx, owner, "mine", []string{"keys:read"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	stranger := principalWith("u2", RoleUser, PermKeysRead)
	if err := svc.Revoke(ctx, stranger, token.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign token must look missing, got %v", err)
	}

	admin := principalWith("root", RoleAdmin, PermAdminAll)
	if err := svc.Revoke(ctx, admin, token.ID); err != nil {
		t.Fatalf("admin should revoke any token: %v", err)
	}
	stored, err := store.Tokens(ctx).Find(ctx, token.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.IsActive {
		t.Fatal("revoked token still active")
	}
}

func TestTokenListScopedToUser(t *testing.T) {
	svc, _ := testTokenService(t)
	ctx := context.Background()
	u1 := principalWith("u1", RoleUser, PermKeysRead)
	u2 := principalWith("u2", RoleUser, PermKeysRead)

	if _, _, err := svc.Create(ctx, u1, "a", []string{"keys:read"}, nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Create(ctx, u2, "b", []string{"keys:read"}, nil); err != nil {
		t.Fatal(err)
	}

	tokens, err := svc.List(ctx, u1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 1 || tokens[0].UserID != "u1" {
		t.Fatalf("list should only return the caller's tokens: %#v", tokens)
	}
}
