package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedUser(t *testing.T, store *MemoryStore, id string, role Role, legacyToken string) *User {
	t.Helper()
	u := &User{
		ID:       id,
		Email:    id + "@example.com",
		Role:     role,
		IsActive: true,
	}
	if legacyToken != "" {
		u.APITokenDigest = DigestToken(legacyToken)
	}
	if err := store.Users(context.Background()).Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestResolveLegacyToken(t *testing.T) {
	store := NewMemoryStore()
	seedUser(t, store, "u1", RoleUser, "kv_legacy_token")

	principal, err := NewResolver(store).Resolve(context.Background(), "kv_legacy_token")
	if err != nil {
		t.Fatal(err)
	}
	if principal.TokenSource != SourceLegacy {
		t.Fatalf("unexpected source %s", principal.TokenSource)
	}
	// Legacy tokens inherit the whole role.
	if !principal.HasPermission(PermKeysWrite) {
		t.Error("legacy user token should carry keys:write")
	}
	if principal.HasPermission(PermAdminAll) {
		t.Error("USER role must not carry admin:all")
	}
}

func TestResolveScopedTokenWinsOverLegacy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, store, "u1", RoleUser, "kv_legacy_token")

	svc, err := NewTokenService(store)
	if err != nil {
		t.Fatal(err)
	}
	owner := Principal{UserID: "u1", Role: RoleUser, IsActive: true,
		Permissions: map[Permission]struct{}{PermKeysRead: {}, PermTokensManage: {}}}
	plaintext, _, err := svc.Create(ctx, owner, "reader", []string{"keys:read"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	principal, err := NewResolver(store).Resolve(ctx, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if principal.TokenSource != SourceScoped {
		t.Fatalf("scoped table must be consulted first, got %s", principal.TokenSource)
	}
	if !principal.HasPermission(PermKeysRead) {
		t.Error("scoped token should carry keys:read")
	}
	if principal.HasPermission(PermKeysWrite) {
		t.Error("scoped token must not inherit role permissions")
	}

	// The legacy token still works independently.
	legacy, err := NewResolver(store).Resolve(ctx, "kv_legacy_token")
	if err != nil {
		t.Fatal(err)
	}
	if legacy.TokenSource != SourceLegacy {
		t.Fatalf("unexpected source %s", legacy.TokenSource)
	}
}

func TestResolveTouchesLastUsed(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, store, "u1", RoleUser, "")

	svc, err := NewTokenService(store)
	if err != nil {
		t.Fatal(err)
	}
	owner := Principal{UserID: "u1", Role: RoleUser, IsActive: true,
		Permissions: map[Permission]struct{}{PermKeysRead: {}}}
	plaintext, token, err := svc.Create(ctx, owner, "reader", []string{"keys:read"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewResolver(store).Resolve(ctx, plaintext); err != nil {
		t.Fatal(err)
	}
	stored, err := store.Tokens(ctx).Find(ctx, token.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastUsedAt == nil {
		t.Error("last_used_at should be touched on resolve")
	}
}

func TestResolveFailuresCollapseToInvalidToken(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	inactive := seedUser(t, store, "u1", RoleUser, "kv_inactive_user")
	inactive.IsActive = false
	_ = store.Users(ctx).Create(ctx, inactive) // overwrite with inactive copy

	svc, err := NewTokenService(store)
	if err != nil {
		t.Fatal(err)
	}
	seedUser(t, store, "u2", RoleUser, "")
	owner := Principal{UserID: "u2", Role: RoleUser, IsActive: true,
		Permissions: map[Permission]struct{}{PermKeysRead: {}}}

	soon := time.Now().Add(time.Minute)
	expiring, expTok, err := svc.Create(ctx, owner, "short", []string{"keys:read"}, &soon)
	if err != nil {
		t.Fatal(err)
	}
	revoked, revTok, err := svc.Create(ctx, owner, "revoked", []string{"keys:read"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Tokens(ctx).Revoke(ctx, revTok.ID); err != nil {
		t.Fatal(err)
	}

	resolver := NewResolver(store).WithClock(func() time.Time {
		return expTok.CreatedAt.Add(time.Hour) // past the expiry
	})

	cases := []struct {
		name   string
		bearer string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"unknown", "kv_nonexistent"},
		{"inactive user legacy", "kv_inactive_user"},
		{"expired scoped", expiring},
		{"revoked scoped", revoked},
	}
	for _, tc := range cases {
		if _, err := resolver.Resolve(ctx, tc.bearer); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", tc.name, err)
		}
	}
}

func TestMintTokenStringShape(t *testing.T) {
	tok, err := MintTokenString()
	if err != nil {
		t.Fatal(err)
	}
	if len(tok) != len("kv_")+2*tokenByteCount {
		t.Fatalf("unexpected token length %d: %q", len(tok), tok)
	}
	if tok[:3] != "kv_" {
		t.Fatalf("token must carry the kv_ prefix: %q", tok)
	}
	other, err := MintTokenString()
	if err != nil {
		t.Fatal(err)
	}
	if tok == other {
		t.Fatal("two minted tokens collided")
	}
}

func TestDigestTokenTrimsWhitespace(t *testing.T) {
	if DigestToken(" kv_x ") != DigestToken("kv_x") {
		t.Fatal("digest must ignore surrounding whitespace")
	}
}

func TestResolveIsStableAcrossCalls(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seedUser(t, store, "u1", RoleUser, "kv_legacy_token")

	svc, err := NewTokenService(store)
	if err != nil {
		t.Fatal(err)
	}
	owner := Principal{UserID: "u1", Role: RoleUser, IsActive: true,
		Permissions: map[Permission]struct{}{PermKeysRead: {}, PermTokensManage: {}}}
	scoped, _, err := svc.Create(ctx, owner, "reader", []string{"keys:read"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	// The scoped path updates last_used_at on every hit; that bookkeeping
	// must not bleed into the resolved identity or permission set.
	resolver := NewResolver(store)
	for _, token := range []string{scoped, "kv_legacy_token"} {
		first, err := resolver.Resolve(ctx, token)
		if err != nil {
			t.Fatal(err)
		}
		second, err := resolver.Resolve(ctx, token)
		if err != nil {
			t.Fatal(err)
		}
		if first.UserID != second.UserID {
			t.Fatalf("user id drifted between calls: %q vs %q", first.UserID, second.UserID)
		}
		if first.TokenSource != second.TokenSource {
			t.Fatalf("token source drifted: %s vs %s", first.TokenSource, second.TokenSource)
		}
		if len(first.Permissions) != len(second.Permissions) {
			t.Fatalf("permission set size drifted: %d vs %d", len(first.Permissions), len(second.Permissions))
		}
		for perm := range first.Permissions {
			if _, ok := second.Permissions[perm]; !ok {
				t.Fatalf("permission %s present on first resolve, missing on second", perm)
			}
		}
	}
}
