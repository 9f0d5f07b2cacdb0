package gateway

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the server config file.
type TOMLConfig struct {
	Server    ServerSection    `toml:"server"`
	Limits    LimitsSection    `toml:"limits"`
	Heartbeat HeartbeatSection `toml:"heartbeat"`
	Reminders RemindersSection `toml:"reminders"`
	Auth      AuthSection      `toml:"auth"`
}

type ServerSection struct {
	Port         int    `toml:"port"`
	DatabasePath string `toml:"database_path"`
}

type LimitsSection struct {
	MaxMessageBytes int64 `toml:"max_message_bytes"`
	WriteTimeoutMs  int   `toml:"write_timeout_ms"`
}

type HeartbeatSection struct {
	IntervalSeconds int `toml:"interval_seconds"`
}

type RemindersSection struct {
	TaskIntervalMinutes    int `toml:"task_interval_minutes"`
	MeetingIntervalSeconds int `toml:"meeting_interval_seconds"`
	TodoIntervalMinutes    int `toml:"todo_interval_minutes"`
}

type AuthSection struct {
	TokenSecret string `toml:"token_secret"`
}

// DefaultTOMLConfig returns the default configuration.
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			Port:         8080,
			DatabasePath: "~/.teamline/teamline.db",
		},
		Limits: LimitsSection{
			MaxMessageBytes: 65536,
			WriteTimeoutMs:  10000,
		},
		Heartbeat: HeartbeatSection{
			IntervalSeconds: 30,
		},
		Reminders: RemindersSection{
			TaskIntervalMinutes:    60,
			MeetingIntervalSeconds: 60,
			TodoIntervalMinutes:    60,
		},
		Auth: AuthSection{
			TokenSecret: "",
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating a default file
// if none exists yet.
func LoadConfig(path string) (TOMLConfig, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(expanded, config); err != nil {
			// Unable to persist defaults (permissions, read-only fs); still
			// usable with in-memory defaults.
			return config, nil
		}
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(expanded, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# Teamline Server Configuration
# This file was auto-generated with default values
# Edit as needed and restart the server for changes to take effect

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ServerConfig is the resolved runtime configuration for the gateway.
type ServerConfig struct {
	Port              int
	MaxMessageBytes   int64
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

// DefaultConfig returns default runtime configuration.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Port:              8080,
		MaxMessageBytes:   65536,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
	}
}

// ToServerConfig converts the file configuration to runtime configuration,
// falling back to defaults for unset values.
func (c *TOMLConfig) ToServerConfig() ServerConfig {
	cfg := DefaultConfig()

	if c.Server.Port != 0 {
		cfg.Port = c.Server.Port
	}
	if c.Limits.MaxMessageBytes != 0 {
		cfg.MaxMessageBytes = c.Limits.MaxMessageBytes
	}
	if c.Limits.WriteTimeoutMs != 0 {
		cfg.WriteTimeout = time.Duration(c.Limits.WriteTimeoutMs) * time.Millisecond
	}
	if c.Heartbeat.IntervalSeconds != 0 {
		cfg.HeartbeatInterval = time.Duration(c.Heartbeat.IntervalSeconds) * time.Second
	}
	return cfg
}

// GetDatabasePath returns the database path with ~ expanded.
func (c *TOMLConfig) GetDatabasePath() (string, error) {
	return expandHome(c.Server.DatabasePath)
}

func expandHome(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}
	return path, nil
}
