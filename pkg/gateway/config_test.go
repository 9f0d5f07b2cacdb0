package gateway

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", config.Server.Port)
	}
	if config.Heartbeat.IntervalSeconds != 30 {
		t.Errorf("expected default heartbeat 30s, got %d", config.Heartbeat.IntervalSeconds)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config file should be written: %v", err)
	}

	// The written file round-trips.
	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error reloading: %v", err)
	}
	if reloaded != config {
		t.Error("reloaded config should match the defaults that were written")
	}
}

func TestLoadConfigParsesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 9090

[heartbeat]
interval_seconds = 10

[auth]
token_secret = "hunter2"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", config.Server.Port)
	}
	if config.Auth.TokenSecret != "hunter2" {
		t.Errorf("expected token secret to load, got %q", config.Auth.TokenSecret)
	}

	cfg := config.ToServerConfig()
	if cfg.HeartbeatInterval != 10*time.Second {
		t.Errorf("expected 10s heartbeat, got %v", cfg.HeartbeatInterval)
	}
	// Unset values fall back to defaults.
	if cfg.MaxMessageBytes != 65536 {
		t.Errorf("expected default message limit, got %d", cfg.MaxMessageBytes)
	}
	if cfg.WriteTimeout != 10*time.Second {
		t.Errorf("expected default write timeout, got %v", cfg.WriteTimeout)
	}
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\nport = "), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("malformed config should be rejected")
	}
}
