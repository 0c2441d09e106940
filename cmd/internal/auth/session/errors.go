package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidToken is returned when an access token fails structural
	// verification (signature, shape, issuer, expiry).
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidCredentials is returned for unknown users and wrong passwords
	// alike; callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized is returned by Authenticate for every gate failure:
	// bad token, missing user, stale session id, expired session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionConflict is returned by Login when the user already holds a
	// live session and takeover was not requested.
	ErrSessionConflict = errors.New("session conflict")

	// ErrSessionHeld is a caller error: Registry.Establish was invoked while
	// a live session is still present. Callers must resolve the conflict
	// (reap, reject, or force-clear) before establishing.
	ErrSessionHeld = errors.New("session still held")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid session config")
)

// ConflictError carries the live session's expiry so clients can render
// "active elsewhere, expires at T" and offer a forced takeover.
type ConflictError struct {
	ExpiresAt time.Time
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s: active session expires at %s", ErrSessionConflict, e.ExpiresAt.Format(time.RFC3339))
}

func (e ConflictError) Unwrap() error { return ErrSessionConflict }
