package session

import (
	"context"
	"fmt"
	"time"

	"freight/cmd/identity"
)

// Registry manages the single active session recorded on a user row.
//
// Session state lives on the user itself as a both-or-none pair of
// (ActiveSessionID, ActiveSessionExpiresAt). Expired sessions are reaped
// lazily when the user is next touched; there is no background sweep.
type Registry struct {
	users identity.Store
}

func NewRegistry(users identity.Store) *Registry {
	return &Registry{users: users}
}

// IsActive reports whether u holds a session that has not yet expired.
func (r *Registry) IsActive(u identity.User, now time.Time) bool {
	if u.ActiveSessionID == nil || u.ActiveSessionExpiresAt == nil {
		return false
	}
	return u.ActiveSessionExpiresAt.After(now)
}

// ReapIfExpired clears a stale session from the user record. It returns the
// refreshed user and whether a reap happened.
func (r *Registry) ReapIfExpired(ctx context.Context, u identity.User, now time.Time) (identity.User, bool, error) {
	if u.ActiveSessionID == nil || u.ActiveSessionExpiresAt == nil {
		return u, false, nil
	}
	if u.ActiveSessionExpiresAt.After(now) {
		return u, false, nil
	}
	if err := r.users.ClearSession(ctx, u.ID); err != nil {
		return u, false, fmt.Errorf("reap session: %w", err)
	}
	u.ActiveSessionID = nil
	u.ActiveSessionExpiresAt = nil
	return u, true, nil
}

// Establish records sessionID as the user's active session. If the user
// still holds a live session the call fails with ErrSessionHeld; callers
// decide the takeover policy before asking for a new session.
func (r *Registry) Establish(ctx context.Context, u identity.User, sessionID string, expiresAt time.Time, now time.Time) error {
	if r.IsActive(u, now) {
		return ErrSessionHeld
	}
	if err := r.users.SetSession(ctx, u.ID, sessionID, expiresAt); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}
	return nil
}

// Clear drops whatever session the user holds. Clearing a user with no
// session is a no-op.
func (r *Registry) Clear(ctx context.Context, u identity.User) error {
	if u.ActiveSessionID == nil && u.ActiveSessionExpiresAt == nil {
		return nil
	}
	if err := r.users.ClearSession(ctx, u.ID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
