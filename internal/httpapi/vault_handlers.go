package httpapi

import (
	"net/http"
	"strings"
	"time"

	"keyvault.org/internal/vault"
)

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

type createKeyRequest struct {
	Name        string     `json:"name"`
	FolderID    string     `json:"folder_id"`
	Environment string     `json:"environment"`
	Type        string     `json:"type"`
	Value       string     `json:"value"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type listFoldersResponse struct {
	Items []vault.FolderSummary `json:"items"`
}

func (a *API) handleAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	path := strings.TrimSpace(q.Get("path"))
	if path == "" {
		writeError(w, r, http.StatusBadRequest, "path query parameter is required")
		return
	}
	wanted, err := vault.ParseWantedType(q.Get("type"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "type must be auto, folder or key")
		return
	}

	result, err := a.vault.Access(r.Context(), principal, vault.AccessRequest{
		Path:        path,
		Type:        wanted,
		Environment: q.Get("environment"),
	})
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleFoldersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createFolder(w, r)
	case http.MethodGet:
		a.listFolders(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createFolder(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	folder, err := a.vault.CreateFolder(r.Context(), principal, vault.CreateFolderInput{
		Name:     req.Name,
		ParentID: strings.TrimSpace(req.ParentID),
	})
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/folders/"+folder.ID)
	writeJSON(w, http.StatusCreated, folder)
}

func (a *API) listFolders(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	items, err := a.vault.ListRootFolders(r.Context(), principal)
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listFoldersResponse{Items: items})
}

func (a *API) handleKeysCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createKey(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) createKey(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.FolderID) == "" {
		writeError(w, r, http.StatusBadRequest, "folder_id is required")
		return
	}

	view, err := a.vault.CreateKey(r.Context(), principal, vault.CreateKeyInput{
		Name:        req.Name,
		FolderID:    strings.TrimSpace(req.FolderID),
		Environment: req.Environment,
		Type:        req.Type,
		Value:       req.Value,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/keys/"+view.ID)
	writeJSON(w, http.StatusCreated, view)
}

func (a *API) handleKeyResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/keys/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getKey(w, r, id)
	case http.MethodDelete:
		a.deleteKey(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) getKey(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	view, err := a.vault.GetKey(r.Context(), principal, id, r.URL.Query().Get("environment"))
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) deleteKey(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.vault.DeleteKey(r.Context(), principal, id); err != nil {
		handleVaultError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
