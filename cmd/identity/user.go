package identity

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of staff roles. The zero value is not valid;
// use ParseRole or DefaultRole.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// DefaultRole is assigned when registration does not name a role.
const DefaultRole = RoleStaff

// ParseRole maps a wire string onto the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleStaff:
		return RoleStaff, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// Valid reports whether r is a member of the closed set.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleStaff }

// User is the canonical security principal.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role

	// Single-active-session state. Invariant: both set or both nil.
	ActiveSessionID        *string
	ActiveSessionExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NormalizeUsername performs case-insensitive canonicalization.
// Only trim + lower-case for now; confusable handling can come later.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
