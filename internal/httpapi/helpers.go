package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"keyvault.org/internal/auth"
	"keyvault.org/internal/vault"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorNote(w, r, code, msg, "")
}

// writeErrorNote attaches an optional security_note hint alongside the error.
// Mismatch and ownership failures never use it: those stay plain not-found.
func writeErrorNote(w http.ResponseWriter, r *http.Request, code int, msg, note string) {
	payload := map[string]any{
		"error": msg,
	}
	if note != "" {
		payload["security_note"] = note
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleVaultError maps service errors onto HTTP statuses. Environment
// mismatches, expired keys and foreign resources all collapse into 404 so
// the response does not reveal whether the secret exists.
func handleVaultError(w http.ResponseWriter, r *http.Request, err error) {
	var pathErr *vault.PathError

	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	case errors.Is(err, auth.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, "permission denied")
	case errors.Is(err, vault.ErrEnvironmentRequired):
		writeErrorNote(w, r, http.StatusBadRequest, "environment is required to read a key value",
			"allowed values: development, staging, production, testing")
	case errors.Is(err, vault.ErrInvalidEnvironment):
		writeErrorNote(w, r, http.StatusBadRequest, "unknown environment",
			"allowed values: development, staging, production, testing")
	case errors.Is(err, vault.ErrMalformedPath),
		errors.Is(err, vault.ErrPathTooDeep),
		errors.Is(err, vault.ErrInvalidInput),
		errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, vault.ErrDuplicate):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &pathErr),
		errors.Is(err, vault.ErrNotFound),
		errors.Is(err, auth.ErrNotFound),
		errors.Is(err, vault.ErrEnvironmentMismatch),
		errors.Is(err, vault.ErrKeyExpired):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
