package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"keyvault.org/internal/audit"
	"keyvault.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.resolver == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			a.recordAuthFailure(r, audit.ResultDenied, err.Error())
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		principal, err := a.resolver.Resolve(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				a.recordAuthFailure(r, audit.ResultDenied, "invalid token")
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				a.recordAuthFailure(r, audit.ResultError, err.Error())
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recordAuthFailure writes the audit entry for an access attempt that died
// before an identity was established. ActorUserID stays empty; the request
// metadata already in context pins down who to ask.
func (a *API) recordAuthFailure(r *http.Request, result audit.Result, why string) {
	if a.recorder == nil {
		return
	}
	info := audit.RequestInfoFromContext(r.Context())
	a.recorder.Record(r.Context(), &audit.Record{
		Action:       "auth.resolve",
		ResourceType: "unknown",
		Result:       result,
		Reason:       why,
		IP:           info.IP,
		Path:         r.URL.Path,
		RequestID:    info.RequestID,
	})
}

// principal returns the authenticated caller or writes a 401 and reports
// false.
func (a *API) principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
