package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "BRIEFWIRE"

// DefaultConfigDir returns the briefwire configuration directory,
// creating it if needed.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".briefwire")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load builds the effective configuration: defaults, then the JSON
// config file if present, then BRIEFWIRE_* environment overrides.
func Load() (*Config, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, "config.json"))
}

// LoadFrom loads configuration from an explicit file path. A missing
// file is not an error; env vars and defaults still apply.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	fillDerived(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	cfg.Model.Name = "gpt-4o-mini"
	cfg.Model.MaxTokens = 1024
	cfg.Model.Temperature = 0.2
	cfg.Model.MaxSuggestions = 3
	cfg.Senders.ExecTimeout = 30 * time.Second
	cfg.Ingest.Topic = "briefwire.events"
	cfg.Ingest.ConsumerGroup = "briefwire"
	cfg.Pipeline.BatchLimit = 20
	cfg.Pipeline.Workers = 4
	cfg.Scheduler.Enabled = true
	cfg.Scheduler.TickInterval = time.Minute
	cfg.Gateway.Host = "127.0.0.1"
	cfg.Gateway.Port = 8787
}

// fillDerived resolves paths that depend on other settings.
func fillDerived(cfg *Config) {
	if cfg.Paths.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Paths.DataDir = filepath.Join(home, ".briefwire")
		} else {
			cfg.Paths.DataDir = "."
		}
	}
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = filepath.Join(cfg.Paths.DataDir, "briefwire.db")
	}
	if cfg.Scheduler.LockPath == "" {
		cfg.Scheduler.LockPath = filepath.Join(cfg.Paths.DataDir, "cron.lock")
	}
	if cfg.Senders.ExecTimeout <= 0 {
		cfg.Senders.ExecTimeout = 30 * time.Second
	}
	if cfg.Scheduler.TickInterval <= 0 {
		cfg.Scheduler.TickInterval = time.Minute
	}
}

// Save writes the configuration back to the default config file.
func Save(cfg *Config) error {
	dir, err := DefaultConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
