package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"keyvault.org/internal/audit"
	"keyvault.org/internal/vault"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestFolderCreateAndFind(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("insert into folders").
		WithArgs(sqlmock.AnyArg(), "Webmeter", "", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	f := &vault.Folder{Name: "Webmeter", OwnerID: "u1"}
	if err := store.Folders(ctx).Create(ctx, f); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID == "" {
		t.Fatal("folder id was not assigned")
	}
	if !f.CreatedAt.Equal(now) {
		t.Fatalf("created_at not scanned: %v", f.CreatedAt)
	}

	mock.ExpectQuery("select id, name, coalesce.*from folders where id").
		WithArgs(f.ID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "owner_id", "created_at", "updated_at"}).
			AddRow(f.ID, "Webmeter", "", "u1", now, now))

	found, err := store.Folders(ctx).Find(ctx, f.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.Name != "Webmeter" || found.ParentID != "" {
		t.Fatalf("unexpected folder: %#v", found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFolderCreateUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("insert into folders").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "folders_sibling_name_idx"})

	err := store.Folders(ctx).Create(ctx, &vault.Folder{Name: "Dup", OwnerID: "u1"})
	if !errors.Is(err, vault.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestFolderFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("select id, name, coalesce.*from folders where id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id", "owner_id", "created_at", "updated_at"}))

	if _, err := store.Folders(ctx).Find(ctx, "missing"); !errors.Is(err, vault.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKeyCreateUniqueViolation(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("insert into keys").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "keys_folder_name_env_idx"})

	err := store.Keys(ctx).Create(ctx, &vault.Key{
		Name: "DB_URL", FolderID: "f1", OwnerID: "u1",
		Environment: vault.EnvDevelopment, Type: vault.KeyTypeSecret,
		EncryptedValue: []byte{1, 2, 3},
	})
	if !errors.Is(err, vault.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestKeyListByOwner(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mock.ExpectQuery("select id, name, folder_id.*from keys where owner_id").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "folder_id", "owner_id", "environment", "type",
			"encrypted_value", "expires_at", "created_at", "updated_at",
		}).
			AddRow("k1", "DB_URL", "f1", "u1", "DEVELOPMENT", "SECRET", []byte{1}, nil, now, now).
			AddRow("k2", "DB_URL", "f1", "u1", "PRODUCTION", "SECRET", []byte{2}, nil, now, now))

	keys, err := store.Keys(ctx).ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].Environment != vault.EnvDevelopment || keys[1].Environment != vault.EnvProduction {
		t.Fatalf("environment variants not preserved: %v %v", keys[0].Environment, keys[1].Environment)
	}
}

func TestKeyDeleteRowsAffected(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("delete from keys where id").
		WithArgs("k1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := store.Keys(ctx).Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	mock.ExpectExec("delete from keys where id").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := store.Keys(ctx).Delete(ctx, "gone"); !errors.Is(err, vault.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditAppend(t *testing.T) {
	store, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("insert into audit_log").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "u1", "vault.access", "key", "k1",
			"denied", "environment mismatch", "keys:read", "10.0.0.1", "Webmeter/Database/DB_URL", "req-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Audit().Append(ctx, &audit.Record{
		ActorUserID:     "u1",
		Action:          "vault.access",
		ResourceType:    "key",
		ResourceID:      "k1",
		Result:          audit.ResultDenied,
		Reason:          "environment mismatch",
		PermissionsUsed: []string{"keys:read"},
		IP:              "10.0.0.1",
		Path:            "Webmeter/Database/DB_URL",
		RequestID:       "req-1",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
