package vault

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Environment partitions otherwise identically named secrets. Matching is
// case-insensitive on input and canonical everywhere else.
type Environment string

const (
	EnvDevelopment Environment = "DEVELOPMENT"
	EnvStaging     Environment = "STAGING"
	EnvProduction  Environment = "PRODUCTION"
	EnvTesting     Environment = "TESTING"
)

// Environments lists every valid environment in canonical form.
var Environments = []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTesting}

// ParseEnvironment canonicalizes a raw environment string.
func ParseEnvironment(raw string) (Environment, error) {
	candidate := Environment(strings.ToUpper(strings.TrimSpace(raw)))
	for _, env := range Environments {
		if candidate == env {
			return env, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEnvironment, raw)
}

// KeyType classifies what kind of secret a key holds.
type KeyType string

const (
	KeyTypeAPIKey      KeyType = "API_KEY"
	KeyTypeSecret      KeyType = "SECRET"
	KeyTypePassword    KeyType = "PASSWORD"
	KeyTypeCertificate KeyType = "CERTIFICATE"
)

// ParseKeyType validates a raw key type, defaulting to SECRET when empty.
func ParseKeyType(raw string) (KeyType, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return KeyTypeSecret, nil
	}
	switch t := KeyType(raw); t {
	case KeyTypeAPIKey, KeyTypeSecret, KeyTypePassword, KeyTypeCertificate:
		return t, nil
	}
	return "", fmt.Errorf("%w: unsupported key type %q", ErrInvalidInput, raw)
}

// Folder is a node in a strictly tree-shaped hierarchy. ParentID empty means
// the folder is a root ("project").
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Key is a leaf secret. EncryptedValue is opaque ciphertext; plaintext only
// ever leaves through the environment gate.
type Key struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	FolderID       string      `json:"folder_id"`
	OwnerID        string      `json:"owner_id"`
	Environment    Environment `json:"environment"`
	Type           KeyType     `json:"type"`
	EncryptedValue []byte      `json:"-"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Expired reports whether the key's expiry, if any, is in the past.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

var (
	ErrNotFound     = errors.New("vault: not found")
	ErrInvalidInput = errors.New("vault: invalid input")
	ErrDuplicate    = errors.New("vault: duplicate entry")

	// Path resolution failures. All of them surface as 404 at the boundary.
	ErrMalformedPath    = errors.New("vault: malformed path")
	ErrSegmentNotFound  = errors.New("vault: path segment not found")
	ErrSegmentAmbiguous = errors.New("vault: path segment ambiguous")
	ErrPathTooDeep      = errors.New("vault: path too deep")

	// Environment gate failures.
	ErrEnvironmentRequired = errors.New("vault: environment is required")
	ErrInvalidEnvironment  = errors.New("vault: invalid environment")
	ErrEnvironmentMismatch = errors.New("vault: environment mismatch")
	ErrKeyExpired          = errors.New("vault: key expired")

	// Data-integrity failure: the folder parent chain revisits a node.
	ErrCyclicStructure = errors.New("vault: cyclic folder structure")

	ErrDecryptFailed = errors.New("vault: decrypt failed")
)

// PathError reports which segment of a resolved path failed, counted from zero.
type PathError struct {
	SegmentIndex int
	Segment      string
	Err          error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%v at segment %d (%q)", e.Err, e.SegmentIndex, e.Segment)
}

func (e *PathError) Unwrap() error { return e.Err }
