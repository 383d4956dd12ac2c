package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keyvault.org/internal/audit"
	"keyvault.org/internal/auth"
	"keyvault.org/internal/obs"
)

// GrantChecker is the sharing extension point: it may approve access to a
// resource the principal does not own. The default implementation denies
// everything, which keeps ownership the only grant until team sharing ships.
type GrantChecker interface {
	HasGrant(ctx context.Context, userID, resourceID string, perm auth.Permission) (bool, error)
}

type denyAllGrants struct{}

func (denyAllGrants) HasGrant(context.Context, string, string, auth.Permission) (bool, error) {
	return false, nil
}

// Service is the access engine: it resolves human paths to folders and keys,
// gates value exposure on environment, makes the allow/deny decision and
// records exactly one audit entry per decision.
type Service struct {
	store    Store
	cipher   Cipher
	recorder *audit.Recorder
	grants   GrantChecker
	now      func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithGrantChecker plugs in a sharing backend.
func WithGrantChecker(g GrantChecker) Option {
	return func(s *Service) {
		if g != nil {
			s.grants = g
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the access engine.
func NewService(store Store, cipher Cipher, recorder *audit.Recorder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("vault: store is required")
	}
	if cipher == nil {
		return nil, errors.New("vault: cipher is required")
	}
	if recorder == nil {
		return nil, errors.New("vault: audit recorder is required")
	}
	s := &Service{
		store:    store,
		cipher:   cipher,
		recorder: recorder,
		grants:   denyAllGrants{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessRequest is one resolution attempt against the /access surface.
type AccessRequest struct {
	Path        string
	Type        WantedType
	Environment string
}

// KeyView is the serialized shape of a key. Value is present only when the
// environment gate allowed decryption. Field names are stable: the SDK and
// audit dashboards depend on them.
type KeyView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Path        string      `json:"path,omitempty"`
	Environment Environment `json:"environment"`
	Type        KeyType     `json:"type"`
	Value       string      `json:"value,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// FolderSummary is the shallow listing entry for a subfolder.
type FolderSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FolderView is the serialized shape of a folder with its direct contents.
type FolderView struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	Subfolders []FolderSummary `json:"subfolders"`
	Keys       []KeyView       `json:"keys"`
}

// AccessResult is the tagged outcome of an access request.
type AccessResult struct {
	Folder *FolderView `json:"folder,omitempty"`
	Key    *KeyView    `json:"key,omitempty"`
}

// Access resolves a slash-delimited path for the principal and, when the
// path terminates at a key, fetches its decrypted value through the
// environment gate. Folder terminals are browsed: their keys are listed,
// with values only where the requested environment matches.
//
// Every call records exactly one audit entry, success or failure.
func (s *Service) Access(ctx context.Context, principal auth.Principal, req AccessRequest) (*AccessResult, error) {
	const action = "vault.access"

	if !principal.IsActive {
		s.record(ctx, principal, action, "unknown", "", req.Path, audit.ResultDenied, "principal inactive")
		return nil, auth.ErrPermissionDenied
	}

	tree, err := s.loadTree(ctx, principal.UserID)
	if err != nil {
		s.record(ctx, principal, action, "unknown", "", req.Path, audit.ResultError, err.Error())
		return nil, err
	}

	node, err := tree.ResolvePath(req.Path, req.Type)
	if err != nil {
		s.record(ctx, principal, action, "unknown", "", req.Path, audit.ResultDenied, err.Error())
		return nil, err
	}

	if node.IsFolder() {
		folder := node.Folder
		if err := s.authorize(ctx, principal, folder.OwnerID, folder.ID, auth.PermFoldersRead); err != nil {
			s.record(ctx, principal, action, "folder", folder.ID, req.Path, audit.ResultDenied, reason(err))
			return nil, err
		}
		view := s.browseFolder(tree, node, req.Environment)
		s.record(ctx, principal, action, "folder", folder.ID, req.Path, audit.ResultGranted, "")
		return &AccessResult{Folder: view}, nil
	}

	if err := s.authorize(ctx, principal, node.OwnerID(), "", auth.PermKeysRead); err != nil {
		s.record(ctx, principal, action, "key", "", req.Path, audit.ResultDenied, reason(err))
		return nil, err
	}

	view, key, err := s.fetchValue(node, req.Environment)
	if err != nil {
		result := audit.ResultDenied
		if errors.Is(err, ErrDecryptFailed) {
			result = audit.ResultError
		}
		s.record(ctx, principal, action, "key", keyID(key), req.Path, result, reason(err))
		return nil, err
	}
	s.record(ctx, principal, action, "key", view.ID, req.Path, audit.ResultGranted, "")
	return &AccessResult{Key: view}, nil
}

// GetKey fetches one key by id, value included, through the same gate and
// decision path as /access.
func (s *Service) GetKey(ctx context.Context, principal auth.Principal, id, requestedEnv string) (*KeyView, error) {
	const action = "vault.key.read"

	key, err := s.store.Keys(ctx).Find(ctx, id)
	if err != nil {
		result := audit.ResultDenied
		if !errors.Is(err, ErrNotFound) {
			result = audit.ResultError
		}
		s.record(ctx, principal, action, "key", id, "", result, reason(err))
		return nil, err
	}
	if err := s.authorize(ctx, principal, key.OwnerID, key.ID, auth.PermKeysRead); err != nil {
		s.record(ctx, principal, action, "key", id, "", audit.ResultDenied, reason(err))
		return nil, err
	}

	node := &ResolvedNode{Keys: []*Key{key}}
	view, _, err := s.fetchValue(node, requestedEnv)
	if err != nil {
		result := audit.ResultDenied
		if errors.Is(err, ErrDecryptFailed) {
			result = audit.ResultError
		}
		s.record(ctx, principal, action, "key", id, "", result, reason(err))
		return nil, err
	}
	s.record(ctx, principal, action, "key", id, "", audit.ResultGranted, "")
	return view, nil
}

// CreateFolderInput carries a folder write.
type CreateFolderInput struct {
	Name     string
	ParentID string
}

// CreateFolder adds a folder, enforcing sibling-name uniqueness at write
// time. Parents belonging to someone else look exactly like missing parents.
func (s *Service) CreateFolder(ctx context.Context, principal auth.Principal, in CreateFolderInput) (*Folder, error) {
	const action = "vault.folder.create"

	if err := s.authorize(ctx, principal, principal.UserID, "", auth.PermFoldersWrite); err != nil {
		s.record(ctx, principal, action, "folder", "", in.Name, audit.ResultDenied, reason(err))
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.Contains(name, "/") {
		err := fmt.Errorf("%w: folder name must be non-empty and slash-free", ErrInvalidInput)
		s.record(ctx, principal, action, "folder", "", in.Name, audit.ResultDenied, reason(err))
		return nil, err
	}
	if in.ParentID != "" {
		parent, err := s.store.Folders(ctx).Find(ctx, in.ParentID)
		if err != nil || parent.OwnerID != principal.UserID {
			s.record(ctx, principal, action, "folder", "", name, audit.ResultDenied, "parent folder not accessible")
			return nil, ErrNotFound
		}
	}

	folder := &Folder{
		Name:     name,
		ParentID: in.ParentID,
		OwnerID:  principal.UserID,
	}
	if err := s.store.Folders(ctx).Create(ctx, folder); err != nil {
		s.record(ctx, principal, action, "folder", "", name, audit.ResultDenied, reason(err))
		return nil, err
	}
	s.record(ctx, principal, action, "folder", folder.ID, name, audit.ResultGranted, "")
	return folder, nil
}

// ListRootFolders returns the principal's root folders ("projects").
func (s *Service) ListRootFolders(ctx context.Context, principal auth.Principal) ([]FolderSummary, error) {
	const action = "vault.folder.list"

	if err := s.authorize(ctx, principal, principal.UserID, "", auth.PermFoldersRead); err != nil {
		s.record(ctx, principal, action, "folder", "", "", audit.ResultDenied, reason(err))
		return nil, err
	}
	tree, err := s.loadTree(ctx, principal.UserID)
	if err != nil {
		s.record(ctx, principal, action, "folder", "", "", audit.ResultError, err.Error())
		return nil, err
	}
	roots := tree.Subfolders("")
	out := make([]FolderSummary, 0, len(roots))
	for _, f := range roots {
		out = append(out, FolderSummary{ID: f.ID, Name: f.Name})
	}
	s.record(ctx, principal, action, "folder", "", "", audit.ResultGranted, "")
	return out, nil
}

// CreateKeyInput carries a key write. Value arrives in plaintext and is
// encrypted under the key's environment before it reaches the store.
type CreateKeyInput struct {
	Name        string
	FolderID    string
	Environment string
	Type        string
	Value       string
	ExpiresAt   *time.Time
}

// CreateKey adds a secret, enforcing the (folder, name, environment)
// uniqueness triple at write time.
func (s *Service) CreateKey(ctx context.Context, principal auth.Principal, in CreateKeyInput) (*KeyView, error) {
	const action = "vault.key.create"

	if err := s.authorize(ctx, principal, principal.UserID, "", auth.PermKeysWrite); err != nil {
		s.record(ctx, principal, action, "key", "", in.Name, audit.ResultDenied, reason(err))
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || strings.Contains(name, "/") {
		err := fmt.Errorf("%w: key name must be non-empty and slash-free", ErrInvalidInput)
		s.record(ctx, principal, action, "key", "", in.Name, audit.ResultDenied, reason(err))
		return nil, err
	}
	env, err := ParseEnvironment(in.Environment)
	if err != nil {
		s.record(ctx, principal, action, "key", "", name, audit.ResultDenied, reason(err))
		return nil, err
	}
	keyType, err := ParseKeyType(in.Type)
	if err != nil {
		s.record(ctx, principal, action, "key", "", name, audit.ResultDenied, reason(err))
		return nil, err
	}
	if in.Value == "" {
		err := fmt.Errorf("%w: value is required", ErrInvalidInput)
		s.record(ctx, principal, action, "key", "", name, audit.ResultDenied, reason(err))
		return nil, err
	}
	folder, err := s.store.Folders(ctx).Find(ctx, in.FolderID)
	if err != nil || folder.OwnerID != principal.UserID {
		s.record(ctx, principal, action, "key", "", name, audit.ResultDenied, "folder not accessible")
		return nil, ErrNotFound
	}

	ciphertext, err := s.cipher.Encrypt(in.Value, env)
	if err != nil {
		s.record(ctx, principal, action, "key", "", name, audit.ResultError, err.Error())
		return nil, err
	}
	key := &Key{
		Name:           name,
		FolderID:       folder.ID,
		OwnerID:        principal.UserID,
		Environment:    env,
		Type:           keyType,
		EncryptedValue: ciphertext,
		ExpiresAt:      in.ExpiresAt,
	}
	if err := s.store.Keys(ctx).Create(ctx, key); err != nil {
		s.record(ctx, principal, action, "key", "", name, audit.ResultDenied, reason(err))
		return nil, err
	}
	s.record(ctx, principal, action, "key", key.ID, name, audit.ResultGranted, "")
	return &KeyView{
		ID:          key.ID,
		Name:        key.Name,
		Environment: key.Environment,
		Type:        key.Type,
		ExpiresAt:   key.ExpiresAt,
		CreatedAt:   key.CreatedAt,
		UpdatedAt:   key.UpdatedAt,
	}, nil
}

// DeleteKey removes a secret. Foreign keys are indistinguishable from
// missing ones.
func (s *Service) DeleteKey(ctx context.Context, principal auth.Principal, id string) error {
	const action = "vault.key.delete"

	key, err := s.store.Keys(ctx).Find(ctx, id)
	if err != nil {
		result := audit.ResultDenied
		if !errors.Is(err, ErrNotFound) {
			result = audit.ResultError
		}
		s.record(ctx, principal, action, "key", id, "", result, reason(err))
		return err
	}
	if err := s.authorize(ctx, principal, key.OwnerID, key.ID, auth.PermKeysDelete); err != nil {
		s.record(ctx, principal, action, "key", id, "", audit.ResultDenied, reason(err))
		return err
	}
	if err := s.store.Keys(ctx).Delete(ctx, id); err != nil {
		s.record(ctx, principal, action, "key", id, "", audit.ResultError, err.Error())
		return err
	}
	s.record(ctx, principal, action, "key", id, "", audit.ResultGranted, "")
	return nil
}

// --- internals ---

// loadTree materializes the owner's full folder tree plus keys in one pass.
func (s *Service) loadTree(ctx context.Context, ownerID string) (*Tree, error) {
	folders, err := s.store.Folders(ctx).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	keys, err := s.store.Keys(ctx).ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return BuildTree(folders, keys)
}

// authorize makes the allow/deny decision: active principal, permission
// membership, then ownership or an explicit grant. Ownership failures are
// masked as not-found so a foreign resource looks exactly like a missing one.
func (s *Service) authorize(ctx context.Context, principal auth.Principal, ownerID, resourceID string, perm auth.Permission) error {
	if !principal.IsActive || !principal.HasPermission(perm) {
		return auth.ErrPermissionDenied
	}
	if ownerID == principal.UserID {
		return nil
	}
	if resourceID != "" {
		granted, err := s.grants.HasGrant(ctx, principal.UserID, resourceID, perm)
		if err == nil && granted {
			return nil
		}
	}
	return ErrNotFound
}

// browseFolder lists a folder's contents. Values are decrypted only for keys
// whose environment matches a valid requested environment; everything else
// degrades to metadata, never to an error.
func (s *Service) browseFolder(tree *Tree, node *ResolvedNode, requestedEnv string) *FolderView {
	folder := node.Folder
	view := &FolderView{
		ID:         folder.ID,
		Name:       folder.Name,
		Path:       node.FullPath(),
		Subfolders: []FolderSummary{},
		Keys:       []KeyView{},
	}
	for _, sub := range tree.Subfolders(folder.ID) {
		view.Subfolders = append(view.Subfolders, FolderSummary{ID: sub.ID, Name: sub.Name})
	}
	now := s.now().UTC()
	for _, key := range tree.Keys(folder.ID) {
		kv := KeyView{
			ID:          key.ID,
			Name:        key.Name,
			Environment: key.Environment,
			Type:        key.Type,
			ExpiresAt:   key.ExpiresAt,
			CreatedAt:   key.CreatedAt,
			UpdatedAt:   key.UpdatedAt,
		}
		outcome, _ := GateValue(key, requestedEnv, IntentBrowse, now)
		if outcome == OutcomeDecrypt {
			if value, err := s.cipher.Decrypt(key.EncryptedValue, key.Environment); err == nil {
				kv.Value = value
			} else {
				obs.LogRequest(map[string]any{
					"level":  "error",
					"msg":    "browse decrypt failed",
					"key_id": key.ID,
					"error":  err.Error(),
				})
			}
		}
		view.Keys = append(view.Keys, kv)
	}
	return view
}

// fetchValue runs the environment gate for a single-key value fetch and
// decrypts the matching variant.
func (s *Service) fetchValue(node *ResolvedNode, requestedEnv string) (*KeyView, *Key, error) {
	now := s.now().UTC()

	if requestedEnv == "" {
		return nil, nil, ErrEnvironmentRequired
	}
	env, err := ParseEnvironment(requestedEnv)
	if err != nil {
		return nil, nil, err
	}

	var exact *Key
	for _, k := range node.Keys {
		if k.Environment == env {
			exact = k
			break
		}
	}
	if exact == nil {
		// The name exists in another environment; the caller must not be
		// able to tell that apart from a missing key.
		return nil, nil, fmt.Errorf("%w: requested %s", ErrEnvironmentMismatch, env)
	}

	outcome, err := GateValue(exact, requestedEnv, IntentFetchValue, now)
	if err != nil {
		return nil, exact, err
	}
	if outcome != OutcomeDecrypt {
		return nil, exact, fmt.Errorf("%w: requested %s", ErrEnvironmentMismatch, env)
	}

	value, err := s.cipher.Decrypt(exact.EncryptedValue, exact.Environment)
	if err != nil {
		return nil, exact, err
	}
	return &KeyView{
		ID:          exact.ID,
		Name:        exact.Name,
		Path:        node.FullPath(),
		Environment: exact.Environment,
		Type:        exact.Type,
		Value:       value,
		ExpiresAt:   exact.ExpiresAt,
		CreatedAt:   exact.CreatedAt,
		UpdatedAt:   exact.UpdatedAt,
	}, exact, nil
}

// record writes the single audit entry every decision produces.
func (s *Service) record(ctx context.Context, principal auth.Principal, action, resourceType, resourceID, path string, result audit.Result, why string) {
	info := audit.RequestInfoFromContext(ctx)
	s.recorder.Record(ctx, &audit.Record{
		ActorUserID:     principal.UserID,
		Action:          action,
		ResourceType:    resourceType,
		ResourceID:      resourceID,
		Result:          result,
		Reason:          why,
		PermissionsUsed: principal.PermissionList(),
		IP:              info.IP,
		Path:            path,
		RequestID:       info.RequestID,
	})
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func keyID(k *Key) string {
	if k == nil {
		return ""
	}
	return k.ID
}
