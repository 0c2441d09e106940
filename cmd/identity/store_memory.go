package identity

import (
	"context"
	"sync"
	"time"

	"freight/cmd/identity/ids"
)

// MemoryStore is the dev/test fallback when no database is configured.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[string]*User
	byNorm map[string]string // normalized username -> id
}

// NewMemoryStore constructs an in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*User),
		byNorm: make(map[string]string),
	}
}

// Create stores a new user, enforcing username uniqueness.
func (s *MemoryStore) Create(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.Create"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	username := in.Username
	if NormalizeUsername(username) == "" || in.PasswordHash == "" {
		return User{}, ErrInvalidInput
	}

	role := in.Role
	if !role.Valid() {
		role = DefaultRole
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	norm := NormalizeUsername(username)
	if _, taken := s.byNorm[norm]; taken {
		return User{}, ConflictError{Op: op, Field: "username"}
	}

	u := &User{
		ID:           id,
		Username:     username,
		PasswordHash: in.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[id] = u
	s.byNorm[norm] = id
	return *u, nil
}

// GetByID returns a user by ID, excluding soft-deleted users.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || u.DeletedAt != nil {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// GetByUsername returns a user by normalized username.
func (s *MemoryStore) GetByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byNorm[NormalizeUsername(username)]
	if !ok {
		return User{}, ErrNotFound
	}
	u := s.byID[id]
	if u == nil || u.DeletedAt != nil {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// SetSession writes both session fields atomically.
func (s *MemoryStore) SetSession(ctx context.Context, userID, sessionID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	sid := sessionID
	exp := expiresAt
	u.ActiveSessionID = &sid
	u.ActiveSessionExpiresAt = &exp
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ClearSession nils both session fields.
func (s *MemoryStore) ClearSession(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	u.ActiveSessionID = nil
	u.ActiveSessionExpiresAt = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdatePassword swaps the credential and clears the session in one step.
func (s *MemoryStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if passwordHash == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ActiveSessionID = nil
	u.ActiveSessionExpiresAt = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}
