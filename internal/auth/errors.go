package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrInvalidInput = errors.New("auth: invalid input")

	// ErrInvalidToken covers every credential failure: unknown token, revoked
	// token, expired token, disabled account. One error so the boundary never
	// reveals which lookup matched.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrPermissionDenied means the caller authenticated but lacks the
	// permission or ownership the operation requires.
	ErrPermissionDenied = errors.New("auth: permission denied")
)
