package identity

import (
	"context"
	"time"
)

// CreateUserInput describes a registration request.
type CreateUserInput struct {
	Username string
	// PasswordHash is the already-hashed credential. Hashing policy lives in
	// cmd/security/password; the store never sees plaintext.
	PasswordHash string
	Role         Role
	Now          time.Time
}

// Store is the identity persistence boundary.
//
// Contract notes:
//   - GetByUsername matches on the normalized username.
//   - SetSession writes both session fields in one update; ClearSession nils
//     both. There is no partial state.
//   - UpdatePassword swaps the credential AND clears the session fields in the
//     same row write, so a password change always forces re-login.
type Store interface {
	Create(ctx context.Context, in CreateUserInput) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)

	SetSession(ctx context.Context, userID, sessionID string, expiresAt time.Time) error
	ClearSession(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}
