package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"keyvault.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Users(context context.Context) UserStore   { return &userStore{db: s.db} }
func (s *PGStore) Tokens(context context.Context) TokenStore { return &tokenStore{db: s.db} }

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, role, is_active, api_token_digest) values($1,$2,$3,$4,nullif($5,''))`,
		u.ID, u.Email, string(u.Role), u.IsActive, u.APITokenDigest,
	)
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, role, is_active, coalesce(api_token_digest,''), created_at, updated_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByLegacyToken(ctx context.Context, digest string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, role, is_active, coalesce(api_token_digest,''), created_at, updated_at
		 from users where api_token_digest=$1`, digest)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &role, &u.IsActive, &u.APITokenDigest, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}

// Token store --------------------------------------------------------------
type tokenStore struct{ db *sql.DB }

func (s *tokenStore) Create(ctx context.Context, t *Token) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	perms, _ := json.Marshal(t.Permissions)
	_, err := s.db.ExecContext(ctx,
		`insert into api_tokens(id, user_id, name, digest, permissions, is_active, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.UserID, t.Name, t.Digest, perms, t.IsActive, t.ExpiresAt,
	)
	return err
}

const tokenColumns = `id, user_id, name, digest, permissions, is_active, expires_at, last_used_at, created_at`

func (s *tokenStore) Find(ctx context.Context, id string) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tokenColumns+` from api_tokens where id=$1`, id)
	return scanToken(row)
}

func (s *tokenStore) FindByDigest(ctx context.Context, digest string) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tokenColumns+` from api_tokens where digest=$1`, digest)
	return scanToken(row)
}

func scanToken(row *sql.Row) (*Token, error) {
	var (
		t     Token
		perms []byte
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Digest, &perms, &t.IsActive, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	_ = json.Unmarshal(perms, &t.Permissions)
	return &t, nil
}

func (s *tokenStore) ListByUser(ctx context.Context, userID string) ([]*Token, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+tokenColumns+` from api_tokens where user_id=$1 order by created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*Token
	for rows.Next() {
		var (
			t     Token
			perms []byte
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.Digest, &perms, &t.IsActive, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(perms, &t.Permissions)
		tokens = append(tokens, &t)
	}
	return tokens, rows.Err()
}

func (s *tokenStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update api_tokens set is_active=false where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *tokenStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update api_tokens set last_used_at=$2 where id=$1`, id, at)
	return err
}
