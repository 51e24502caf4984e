package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Load reads Config from path as stdlib JSON (not the teacher's json5 — that
// library isn't part of this stack), falling back to Default() if the file
// does not exist, then overlays environment variable secrets.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays secrets from the environment; env wins over the
// file, matching the teacher's convention that tokens/API keys never live on
// disk (internal/config.Config.DatabaseConfig.PostgresDSN `json:"-"`).
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("BAS_GATEWAY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
	if v := os.Getenv("BAS_PLANNER_API_KEY"); v != "" {
		c.Planner.APIKey = v
	}
	if v := os.Getenv("BAS_PLANNER_ENDPOINT"); v != "" {
		c.Planner.Endpoint = v
	}
	if v := os.Getenv("BAS_GATEWAY_HOST"); v != "" {
		c.Gateway.Host = v
	}
	if v := os.Getenv("BAS_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}
	if v := os.Getenv("BAS_TELEMETRY_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
}

// Save writes cfg to path as indented JSON. Secrets (fields tagged
// `json:"-"`) never reach disk.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading ~ with the user's home directory, used for
// StorageConfig.Root and similar path fields.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
