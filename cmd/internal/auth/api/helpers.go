package authapi

import (
	"errors"

	"freight/cmd/security/password"
)

// passwordPolicyMessage translates credential policy failures into a
// client-safe message. Other errors return ok=false and are treated as
// internal.
func passwordPolicyMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, password.ErrPasswordEmpty):
		return "password must not be empty", true
	case errors.Is(err, password.ErrPasswordTooShort):
		return "password is too short", true
	case errors.Is(err, password.ErrPasswordTooLong):
		return "password exceeds the 72 byte limit", true
	default:
		return "", false
	}
}
