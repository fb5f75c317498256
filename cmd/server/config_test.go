package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("http_address = %q, want :8080", cfg.Server.HTTPAddress)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access_token_ttl = %v, want 15m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Notify.OutboxSize != 4096 {
		t.Errorf("outbox_size = %d, want 4096", cfg.Notify.OutboxSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	content := `
server:
  http_address: ":9000"
database:
  path: /tmp/test.db
auth:
  access_token_ttl: 5m
  lockout_threshold: 3
notifications:
  rate_per_second: 10
metrics:
  enabled: true
  address: ":9100"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.HTTPAddress != ":9000" {
		t.Errorf("http_address = %q, want :9000", cfg.Server.HTTPAddress)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("database path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if cfg.Auth.AccessTokenTTL != 5*time.Minute {
		t.Errorf("access_token_ttl = %v, want 5m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.LockoutThreshold != 3 {
		t.Errorf("lockout_threshold = %d, want 3", cfg.Auth.LockoutThreshold)
	}
	// Unset fields fall back to defaults.
	if cfg.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("refresh_token_ttl = %v, want 168h", cfg.Auth.RefreshTokenTTL)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Address != ":9100" {
		t.Errorf("metrics = %+v, want enabled on :9100", cfg.Metrics)
	}
}

func TestConfigValidate_TLSRequiresCertAndKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.TLS.Enabled = true

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error when TLS is enabled without cert and key")
	}

	cfg.Server.TLS.CertFile = "cert.pem"
	cfg.Server.TLS.KeyFile = "key.pem"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate config: %v", err)
	}
}
