package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Gateway.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvOverridesToken(t *testing.T) {
	t.Setenv("BAS_GATEWAY_TOKEN", "secret-token")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.Token != "secret-token" {
		t.Errorf("expected env token to apply, got %q", cfg.Gateway.Token)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	cfg.Gateway.Port = 9999
	cfg.Storage.Backend = "sqlite"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Gateway.Port != 9999 || got.Storage.Backend != "sqlite" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestValidate_RejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "nope"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown backend")
	}
}

func TestWatch_ReloadsHotFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Default()
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stop, err := Watch(path, cfg)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	cfg.Gateway.RateLimitRPM = 5
	updated := Default()
	updated.Gateway.RateLimitRPM = 123
	if err := Save(path, updated); err != nil {
		t.Fatalf("Save: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		cfg.mu.RLock()
		rpm := cfg.Gateway.RateLimitRPM
		cfg.mu.RUnlock()
		if rpm == 123 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected hot-reload to apply rate_limit_rpm within the timeout")
}
