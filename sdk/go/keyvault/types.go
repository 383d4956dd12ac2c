package keyvault

import "time"

// Key mirrors the server's key representation. Value is present only when
// the requested environment matched the key's environment.
type Key struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Path        string     `json:"path,omitempty"`
	Environment string     `json:"environment"`
	Type        string     `json:"type"`
	Value       string     `json:"value,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type FolderSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Folder struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	Subfolders []FolderSummary `json:"subfolders"`
	Keys       []Key           `json:"keys"`
}

// AccessResult carries exactly one of Folder or Key.
type AccessResult struct {
	Folder *Folder `json:"folder,omitempty"`
	Key    *Key    `json:"key,omitempty"`
}

type CreateFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type CreatedFolder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateKeyRequest struct {
	Name        string     `json:"name"`
	FolderID    string     `json:"folder_id"`
	Environment string     `json:"environment"`
	Type        string     `json:"type,omitempty"`
	Value       string     `json:"value"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type CreateTokenRequest struct {
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type Token struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreatedToken is returned once, at mint time; Token is the only chance to
// read the plaintext.
type CreatedToken struct {
	Token    string `json:"token"`
	Metadata *Token `json:"metadata"`
}
