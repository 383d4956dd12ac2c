package auth

import (
	"context"
	"sync"
	"time"

	"keyvault.org/internal/ids"
)

// MemoryStore implements Store in process, for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User
	tokens map[string]*Token
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*User),
		tokens: make(map[string]*Token),
	}
}

func (s *MemoryStore) Users(ctx context.Context) UserStore   { return (*memUserStore)(s) }
func (s *MemoryStore) Tokens(ctx context.Context) TokenStore { return (*memTokenStore)(s) }

type memUserStore MemoryStore

func (s *memUserStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	copied := *u
	s.users[u.ID] = &copied
	return nil
}

func (s *memUserStore) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *memUserStore) FindByLegacyToken(ctx context.Context, digest string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if digest == "" {
		return nil, ErrNotFound
	}
	for _, u := range s.users {
		if u.APITokenDigest == digest {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

type memTokenStore MemoryStore

func (s *memTokenStore) Create(ctx context.Context, t *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	t.CreatedAt = time.Now().UTC()
	copied := *t
	copied.Permissions = append([]Permission(nil), t.Permissions...)
	s.tokens[t.ID] = &copied
	return nil
}

func (s *memTokenStore) Find(ctx context.Context, id string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *t
	copied.Permissions = append([]Permission(nil), t.Permissions...)
	return &copied, nil
}

func (s *memTokenStore) FindByDigest(ctx context.Context, digest string) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.Digest == digest {
			copied := *t
			copied.Permissions = append([]Permission(nil), t.Permissions...)
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memTokenStore) ListByUser(ctx context.Context, userID string) ([]*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Token
	for _, t := range s.tokens {
		if t.UserID == userID {
			copied := *t
			copied.Permissions = append([]Permission(nil), t.Permissions...)
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memTokenStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	t.IsActive = false
	return nil
}

func (s *memTokenStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	touched := at
	t.LastUsedAt = &touched
	return nil
}
