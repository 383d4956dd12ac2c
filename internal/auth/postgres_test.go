package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockPGStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPGStore(db), mock
}

func TestPGUserFindByLegacyToken(t *testing.T) {
	store, mock := newMockPGStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	digest := DigestToken("kv_legacy")

	mock.ExpectQuery("select id, email, role.*from users where api_token_digest").
		WithArgs(digest).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "role", "is_active", "api_token_digest", "created_at", "updated_at",
		}).AddRow("u1", "a@example.com", "USER", true, digest, now, now))

	user, err := store.Users(ctx).FindByLegacyToken(ctx, digest)
	if err != nil {
		t.Fatalf("FindByLegacyToken: %v", err)
	}
	if user.Role != RoleUser || !user.IsActive {
		t.Fatalf("unexpected user: %#v", user)
	}
}

func TestPGTokenRoundTrip(t *testing.T) {
	store, mock := newMockPGStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectExec("insert into api_tokens").
		WithArgs(sqlmock.AnyArg(), "u1", "ci", sqlmock.AnyArg(), []byte(`["keys:read"]`), true, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	token := &Token{
		UserID:      "u1",
		Name:        "ci",
		Digest:      DigestToken("kv_x"),
		Permissions: []Permission{PermKeysRead},
		IsActive:    true,
	}
	if err := store.Tokens(ctx).Create(ctx, token); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if token.ID == "" {
		t.Fatal("token id was not assigned")
	}

	mock.ExpectQuery("select id, user_id, name, digest, permissions.*from api_tokens where digest").
		WithArgs(token.Digest).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "name", "digest", "permissions", "is_active", "expires_at", "last_used_at", "created_at",
		}).AddRow(token.ID, "u1", "ci", token.Digest, []byte(`["keys:read"]`), true, nil, nil, now))

	found, err := store.Tokens(ctx).FindByDigest(ctx, token.Digest)
	if err != nil {
		t.Fatalf("FindByDigest: %v", err)
	}
	if len(found.Permissions) != 1 || found.Permissions[0] != PermKeysRead {
		t.Fatalf("permissions not decoded: %#v", found.Permissions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGTokenRevokeMissing(t *testing.T) {
	store, mock := newMockPGStore(t)
	ctx := context.Background()

	mock.ExpectExec("update api_tokens set is_active=false").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Tokens(ctx).Revoke(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
