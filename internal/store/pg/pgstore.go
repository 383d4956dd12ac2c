package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"keyvault.org/internal/audit"
	"keyvault.org/internal/ids"
	"keyvault.org/internal/vault"
)

// Store implements the vault and audit persistence over PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ vault.Store = (*Store)(nil)

// Open connects with tuned pool defaults; adjust under load tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Folders(ctx context.Context) vault.FolderStore { return &folderStore{db: s.db} }
func (s *Store) Keys(ctx context.Context) vault.KeyStore       { return &keyStore{db: s.db} }

// Audit returns the append-only audit log store.
func (s *Store) Audit() audit.Store { return &auditStore{db: s.db} }

const uniqueViolation = "23505"

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", vault.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// Folder store -------------------------------------------------------------
type folderStore struct{ db *sql.DB }

func (s *folderStore) Create(ctx context.Context, f *vault.Folder) error {
	if f.ID == "" {
		f.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into folders(id, name, parent_id, owner_id)
		 values($1,$2,nullif($3,''),$4)
		 returning created_at, updated_at`,
		f.ID, f.Name, f.ParentID, f.OwnerID,
	)
	if err := row.Scan(&f.CreatedAt, &f.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *folderStore) Find(ctx context.Context, id string) (*vault.Folder, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, coalesce(parent_id,''), owner_id, created_at, updated_at
		 from folders where id=$1`, id)
	var f vault.Folder
	if err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vault.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *folderStore) ListByOwner(ctx context.Context, ownerID string) ([]*vault.Folder, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, coalesce(parent_id,''), owner_id, created_at, updated_at
		 from folders where owner_id=$1 order by created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var folders []*vault.Folder
	for rows.Next() {
		var f vault.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.OwnerID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

// Key store ----------------------------------------------------------------
type keyStore struct{ db *sql.DB }

const keyColumns = `id, name, folder_id, owner_id, environment, type, encrypted_value, expires_at, created_at, updated_at`

func (s *keyStore) Create(ctx context.Context, k *vault.Key) error {
	if k.ID == "" {
		k.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into keys(id, name, folder_id, owner_id, environment, type, encrypted_value, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8)
		 returning created_at, updated_at`,
		k.ID, k.Name, k.FolderID, k.OwnerID, string(k.Environment), string(k.Type), k.EncryptedValue, k.ExpiresAt,
	)
	if err := row.Scan(&k.CreatedAt, &k.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *keyStore) Find(ctx context.Context, id string) (*vault.Key, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+keyColumns+` from keys where id=$1`, id)
	return scanKey(row.Scan)
}

func (s *keyStore) ListByOwner(ctx context.Context, ownerID string) ([]*vault.Key, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+keyColumns+` from keys where owner_id=$1 order by created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*vault.Key
	for rows.Next() {
		k, err := scanKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *keyStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from keys where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return vault.ErrNotFound
	}
	return nil
}

func scanKey(scan func(...any) error) (*vault.Key, error) {
	var (
		k        vault.Key
		env, typ string
	)
	if err := scan(&k.ID, &k.Name, &k.FolderID, &k.OwnerID, &env, &typ, &k.EncryptedValue, &k.ExpiresAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vault.ErrNotFound
		}
		return nil, err
	}
	k.Environment = vault.Environment(env)
	k.Type = vault.KeyType(typ)
	return &k, nil
}

// Audit store --------------------------------------------------------------
type auditStore struct{ db *sql.DB }

func (s *auditStore) Append(ctx context.Context, rec *audit.Record) error {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into audit_log(id, occurred_at, actor_user_id, action, resource_type, resource_id, result, reason, permissions_used, ip, path, request_id)
		 values($1,$2,nullif($3,''),$4,$5,nullif($6,''),$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.OccurredAt, rec.ActorUserID, rec.Action, rec.ResourceType, rec.ResourceID,
		string(rec.Result), rec.Reason, strings.Join(rec.PermissionsUsed, ","), rec.IP, rec.Path, rec.RequestID,
	)
	return err
}
