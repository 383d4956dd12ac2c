package vault

import "context"

// Store describes persistence operations required by the vault engine.
// Folders and keys live in an external transactional store; each request
// materializes a fresh tree from the current store state.
type Store interface {
	Folders(ctx context.Context) FolderStore
	Keys(ctx context.Context) KeyStore
}

// FolderStore manages folder rows.
type FolderStore interface {
	Create(ctx context.Context, f *Folder) error
	Find(ctx context.Context, id string) (*Folder, error)
	// ListByOwner returns every folder of the owner in one pass; the tree
	// builder reconstructs parent/child links in memory.
	ListByOwner(ctx context.Context, ownerID string) ([]*Folder, error)
}

// KeyStore manages key rows. Values are stored encrypted only.
type KeyStore interface {
	Create(ctx context.Context, k *Key) error
	Find(ctx context.Context, id string) (*Key, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Key, error)
	Delete(ctx context.Context, id string) error
}
