package domain

import "errors"

var (
	// ErrUnauthorized marks a missing, malformed or rejected bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptyQuery rejects a recall request without query text.
	ErrEmptyQuery = errors.New("empty query")
	// ErrSessionRequired rejects a purge request without a session id.
	ErrSessionRequired = errors.New("session_id required")
	// ErrNotFound is returned by repositories when no row matches.
	ErrNotFound = errors.New("not found")
)

// AuthError is an ErrUnauthorized with a caller-facing reason.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// Is makes every AuthError match ErrUnauthorized.
func (e *AuthError) Is(target error) bool {
	return target == ErrUnauthorized
}

var (
	// ErrMissingToken rejects a request without a bearer Authorization header.
	ErrMissingToken error = &AuthError{Reason: "missing bearer token"}
	// ErrInvalidToken rejects a bearer token the identity provider does not accept.
	ErrInvalidToken error = &AuthError{Reason: "invalid token"}
)
