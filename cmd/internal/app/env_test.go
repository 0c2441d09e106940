package app

import (
	"reflect"
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("T_STR", "  hello ")
	t.Setenv("T_BOOL", "true")
	t.Setenv("T_INT", "42")
	t.Setenv("T_INT_BAD", "-3")
	t.Setenv("T_DUR", "90s")
	t.Setenv("T_DUR_BAD", "-5s")
	t.Setenv("T_CSV", "a, b ,,c")

	if got := EnvString("T_STR", "def"); got != "hello" {
		t.Fatalf("EnvString=%q", got)
	}
	if got := EnvString("T_MISSING", "def"); got != "def" {
		t.Fatalf("EnvString default=%q", got)
	}
	if !EnvBool("T_BOOL", false) {
		t.Fatalf("EnvBool should be true")
	}
	if got := EnvInt("T_INT", 1); got != 42 {
		t.Fatalf("EnvInt=%d", got)
	}
	if got := EnvInt("T_INT_BAD", 7); got != 7 {
		t.Fatalf("EnvInt non-positive should fall back, got %d", got)
	}
	if got := EnvDuration("T_DUR", time.Second); got != 90*time.Second {
		t.Fatalf("EnvDuration=%v", got)
	}
	if got := EnvDuration("T_DUR_BAD", time.Second); got != time.Second {
		t.Fatalf("EnvDuration negative should fall back, got %v", got)
	}
	if got := EnvCSV("T_CSV", nil); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("EnvCSV=%v", got)
	}
	if got := EnvCSV("T_MISSING", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("EnvCSV default=%v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("FREIGHT_HTTP_ADDR", "")
	t.Setenv("FREIGHT_HTTP_WRITE_TIMEOUT", "")
	t.Setenv("FREIGHT_STREAM_HEARTBEAT", "")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.WriteTimeout != 0 {
		t.Fatalf("WriteTimeout=%v want 0 for streaming endpoints", cfg.WriteTimeout)
	}
	if cfg.HeartbeatInterval != 15*time.Second {
		t.Fatalf("HeartbeatInterval=%v", cfg.HeartbeatInterval)
	}
	if cfg.UploadDir != "uploads" {
		t.Fatalf("UploadDir=%q", cfg.UploadDir)
	}
}
