package session

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Issuer != "freightd" {
		t.Errorf("Issuer = %q, want freightd", cfg.Issuer)
	}
	if cfg.TokenTTL != 120*time.Minute {
		t.Errorf("TokenTTL = %v, want 120m", cfg.TokenTTL)
	}
	if cfg.ClockSkew != 30*time.Second {
		t.Errorf("ClockSkew = %v, want 30s", cfg.ClockSkew)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("FREIGHT_AUTH_ISSUER", "freight-test")
	t.Setenv("FREIGHT_TOKEN_TTL", "45m")
	t.Setenv("FREIGHT_SIGNING_KEY", "env-key")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.Issuer != "freight-test" {
		t.Errorf("Issuer = %q", cfg.Issuer)
	}
	if cfg.TokenTTL != 45*time.Minute {
		t.Errorf("TokenTTL = %v, want 45m", cfg.TokenTTL)
	}
	if cfg.SigningKey != "env-key" {
		t.Errorf("SigningKey = %q", cfg.SigningKey)
	}
}

func TestLoadConfigFromEnv_BadValues(t *testing.T) {
	t.Setenv("FREIGHT_TOKEN_TTL", "soon")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("bad ttl error = %v, want ErrConfig", err)
	}
}
