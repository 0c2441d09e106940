package session

import (
	"os"
	"time"
)

// Config defines runtime configuration for the session subsystem.
//
// It controls the access-token TTL (which doubles as the session lifetime),
// clock skew tolerance, and the HMAC signing key.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// TokenTTL is the lifetime of both the signed token and the server-side
	// session record; the two always expire together.
	TokenTTL time.Duration

	// ClockSkew is the allowed time skew during token validation.
	ClockSkew time.Duration

	// SigningKey is the process-wide HS256 key, fixed at startup.
	SigningKey string
}

// DefaultConfig returns defaults suitable for development.
//
// The signing key default mirrors the classic "change me" placeholder;
// production deployments must set FREIGHT_SIGNING_KEY.
func DefaultConfig() Config {
	return Config{
		Issuer:     "freightd",
		TokenTTL:   120 * time.Minute,
		ClockSkew:  30 * time.Second,
		SigningKey: "change-me-freight-secret",
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - FREIGHT_AUTH_ISSUER
//   - FREIGHT_TOKEN_TTL
//   - FREIGHT_AUTH_CLOCK_SKEW
//   - FREIGHT_SIGNING_KEY
//
// Returns ErrConfig if a provided value is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("FREIGHT_AUTH_ISSUER"); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("FREIGHT_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv("FREIGHT_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	if v := os.Getenv("FREIGHT_SIGNING_KEY"); v != "" {
		cfg.SigningKey = v
	}
	if cfg.SigningKey == "" {
		return Config{}, ErrConfig
	}

	return cfg, nil
}
