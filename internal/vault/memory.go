package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keyvault.org/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and local development; production runs on the Postgres store.
type InMemory struct {
	mu      sync.RWMutex
	folders map[string]*Folder
	keys    map[string]*Key
}

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{
		folders: make(map[string]*Folder),
		keys:    make(map[string]*Key),
	}
}

func (s *InMemory) Folders(ctx context.Context) FolderStore { return (*memFolderStore)(s) }
func (s *InMemory) Keys(ctx context.Context) KeyStore       { return (*memKeyStore)(s) }

type memFolderStore InMemory

func (s *memFolderStore) Create(ctx context.Context, f *Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = ids.New()
	}
	// Same uniqueness the relational index enforces: one name per sibling set.
	for _, existing := range s.folders {
		if existing.OwnerID == f.OwnerID && existing.ParentID == f.ParentID && existing.Name == f.Name {
			return fmt.Errorf("%w: folder %q", ErrDuplicate, f.Name)
		}
	}
	now := time.Now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now
	copied := *f
	s.folders[f.ID] = &copied
	return nil
}

func (s *memFolderStore) Find(ctx context.Context, id string) (*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *f
	return &copied, nil
}

func (s *memFolderStore) ListByOwner(ctx context.Context, ownerID string) ([]*Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Folder
	for _, f := range s.folders {
		if f.OwnerID == ownerID {
			copied := *f
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memKeyStore InMemory

func (s *memKeyStore) Create(ctx context.Context, k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == "" {
		k.ID = ids.New()
	}
	for _, existing := range s.keys {
		if existing.FolderID == k.FolderID && existing.Name == k.Name && existing.Environment == k.Environment {
			return fmt.Errorf("%w: key %q in %s", ErrDuplicate, k.Name, k.Environment)
		}
	}
	now := time.Now().UTC()
	k.CreatedAt = now
	k.UpdatedAt = now
	copied := *k
	s.keys[k.ID] = &copied
	return nil
}

func (s *memKeyStore) Find(ctx context.Context, id string) (*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *k
	return &copied, nil
}

func (s *memKeyStore) ListByOwner(ctx context.Context, ownerID string) ([]*Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Key
	for _, k := range s.keys {
		if k.OwnerID == ownerID {
			copied := *k
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memKeyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[id]; !ok {
		return ErrNotFound
	}
	delete(s.keys, id)
	return nil
}
