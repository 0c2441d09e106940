package ids

import (
	"testing"
	"time"
)

func TestNewULID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	b, err := NewULID(now)
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}

	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("want 26-char ULIDs, got %q and %q", a, b)
	}
	if a == b {
		t.Fatalf("ULIDs should not collide: %q", a)
	}

	// Zero time falls back to the wall clock.
	c, err := NewULID(time.Time{})
	if err != nil || len(c) != 26 {
		t.Fatalf("zero-time ULID: %q err=%v", c, err)
	}
}
