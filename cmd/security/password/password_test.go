package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// Low cost keeps the test suite fast; the guard logic is cost-independent.
func testConfig() Config {
	return Config{Cost: bcrypt.MinCost, Policy: Policy{MinLength: 8}}
}

func TestHashAndVerify_OK(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	h, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "correct horse battery staple")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected match")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	h, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := cfg.Verify(h, "wrong password entirely")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestByteLimit(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	cases := []struct {
		name     string
		password string
		wantErr  error
	}{
		{name: "72 ascii bytes is fine", password: strings.Repeat("a", MaxPasswordBytes), wantErr: nil},
		{name: "73 ascii bytes rejected", password: strings.Repeat("a", MaxPasswordBytes+1), wantErr: ErrPasswordTooLong},
		// 25 four-byte runes = 100 bytes; rune count alone would pass.
		{name: "multibyte counted in bytes", password: strings.Repeat("\U0001F680", 25), wantErr: ErrPasswordTooLong},
	}

	for _, tc := range cases {
		_, err := cfg.Hash(tc.password)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: Hash err=%v want=%v", tc.name, err, tc.wantErr)
		}
	}

	// Verify applies the same guard instead of letting bcrypt truncate.
	h, err := cfg.Hash(strings.Repeat("a", MaxPasswordBytes))
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if _, err := cfg.Verify(h, strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("Verify long input err=%v want=%v", err, ErrPasswordTooLong)
	}
}

func TestValidate_Policy(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	if err := cfg.Validate(""); !errors.Is(err, ErrPasswordEmpty) {
		t.Fatalf("empty: got %v", err)
	}
	if err := cfg.Validate("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short: got %v", err)
	}
	if err := cfg.Validate("long enough"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestVerify_InvalidHash(t *testing.T) {
	t.Parallel()
	cfg := testConfig()

	ok, err := cfg.Verify("not-a-hash", "whatever password")
	if ok {
		t.Fatalf("expected mismatch for malformed hash")
	}
	if !errors.Is(err, ErrInvalidHash) {
		t.Fatalf("expected ErrInvalidHash, got %v", err)
	}
}
