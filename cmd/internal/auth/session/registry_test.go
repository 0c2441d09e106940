package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"freight/cmd/identity"
)

func seedUser(t *testing.T, store identity.Store) identity.User {
	t.Helper()
	u, err := store.Create(context.Background(), identity.CreateUserInput{
		Username:     "dispatcher",
		PasswordHash: "x",
		Role:         identity.RoleStaff,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestRegistry_IsActive(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(identity.NewMemoryStore())
	now := time.Now().UTC()

	sid := "sess-1"
	live := now.Add(time.Hour)
	stale := now.Add(-time.Hour)

	cases := []struct {
		name string
		user identity.User
		want bool
	}{
		{name: "no session", user: identity.User{}, want: false},
		{name: "live", user: identity.User{ActiveSessionID: &sid, ActiveSessionExpiresAt: &live}, want: true},
		{name: "expired", user: identity.User{ActiveSessionID: &sid, ActiveSessionExpiresAt: &stale}, want: false},
	}
	for _, tc := range cases {
		if got := reg.IsActive(tc.user, now); got != tc.want {
			t.Errorf("%s: IsActive = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestRegistry_EstablishAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := identity.NewMemoryStore()
	reg := NewRegistry(store)
	u := seedUser(t, store)
	now := time.Now().UTC()

	if err := reg.Establish(ctx, u, "sess-1", now.Add(time.Hour), now); err != nil {
		t.Fatalf("Establish: %v", err)
	}

	u, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.ActiveSessionID == nil || *u.ActiveSessionID != "sess-1" {
		t.Fatalf("ActiveSessionID = %v, want sess-1", u.ActiveSessionID)
	}

	// Still held: a second establish must be refused.
	if err := reg.Establish(ctx, u, "sess-2", now.Add(time.Hour), now); !errors.Is(err, ErrSessionHeld) {
		t.Fatalf("Establish while held error = %v, want ErrSessionHeld", err)
	}

	if err := reg.Clear(ctx, u); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	u, err = store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.ActiveSessionID != nil || u.ActiveSessionExpiresAt != nil {
		t.Fatalf("session not cleared: %v %v", u.ActiveSessionID, u.ActiveSessionExpiresAt)
	}

	// Clearing again is a no-op.
	if err := reg.Clear(ctx, u); err != nil {
		t.Fatalf("Clear (idempotent): %v", err)
	}
}

func TestRegistry_ReapIfExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := identity.NewMemoryStore()
	reg := NewRegistry(store)
	u := seedUser(t, store)
	now := time.Now().UTC()

	if err := reg.Establish(ctx, u, "sess-1", now.Add(time.Minute), now); err != nil {
		t.Fatalf("Establish: %v", err)
	}
	u, err := store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	// Not yet expired: no reap.
	got, reaped, err := reg.ReapIfExpired(ctx, u, now)
	if err != nil {
		t.Fatalf("ReapIfExpired: %v", err)
	}
	if reaped {
		t.Fatal("reaped a live session")
	}
	if got.ActiveSessionID == nil {
		t.Fatal("live session dropped from returned user")
	}

	// Past expiry: reaped and persisted.
	got, reaped, err = reg.ReapIfExpired(ctx, u, now.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("ReapIfExpired: %v", err)
	}
	if !reaped {
		t.Fatal("expired session not reaped")
	}
	if got.ActiveSessionID != nil || got.ActiveSessionExpiresAt != nil {
		t.Fatal("returned user still carries session after reap")
	}
	u, err = store.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.ActiveSessionID != nil {
		t.Fatal("store still carries session after reap")
	}
}
