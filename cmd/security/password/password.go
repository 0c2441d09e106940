package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the hard bcrypt input limit. bcrypt only consumes the
// first 72 bytes of its input; anything longer must be rejected up front or
// two different passwords could verify against the same hash.
const MaxPasswordBytes = 72

// Policy controls password validation.
type Policy struct {
	MinLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	Cost   int
	Policy Policy
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Cost:   bcrypt.DefaultCost,
		Policy: Policy{MinLength: 8},
	}
}

// Validate checks password policy. It does not mutate input.
// The byte-length guard applies to policy validation and to Hash/Verify alike.
func (c Config) Validate(password string) error {
	if password == "" {
		return ErrPasswordEmpty
	}
	if len(password) < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash hashes a password with bcrypt and returns the encoded hash string.
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}

	cost := c.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, err) for oversized input or a malformed hash.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	if len(password) > MaxPasswordBytes {
		// Same guard as Hash: never let bcrypt truncate.
		return false, ErrPasswordTooLong
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return false, ErrInvalidHash
	default:
		var hvErr bcrypt.HashVersionTooNewError
		if errors.As(err, &hvErr) {
			return false, ErrInvalidHash
		}
		return false, err
	}
}
