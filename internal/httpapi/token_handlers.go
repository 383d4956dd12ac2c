package httpapi

import (
	"net/http"
	"strings"
	"time"

	"keyvault.org/internal/auth"
)

type createTokenRequest struct {
	Name        string     `json:"name"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// createTokenResponse carries the plaintext token exactly once, at mint
// time. Only the digest is stored.
type createTokenResponse struct {
	Token    string      `json:"token"`
	Metadata *auth.Token `json:"metadata"`
}

type listTokensResponse struct {
	Items []*auth.Token `json:"items"`
}

func (a *API) handleTokensCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createToken(w, r)
	case http.MethodGet:
		a.listTokens(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) createToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	var req createTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	plaintext, token, err := a.tokens.Create(r.Context(), principal, req.Name, req.Permissions, req.ExpiresAt)
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createTokenResponse{
		Token:    plaintext,
		Metadata: token,
	})
}

func (a *API) listTokens(w http.ResponseWriter, r *http.Request) {
	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	items, err := a.tokens.List(r.Context(), principal)
	if err != nil {
		handleVaultError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listTokensResponse{Items: items})
}

func (a *API) handleTokenResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/tokens/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}

	principal, ok := a.principal(w, r)
	if !ok {
		return
	}
	if err := a.tokens.Revoke(r.Context(), principal, id); err != nil {
		handleVaultError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
