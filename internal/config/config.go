// Package config defines the orchestrator's nested JSON configuration, one
// struct per component, plus env-var secret overrides and fsnotify-driven
// hot-reload of the fields safe to swap at runtime. Grounded on the
// teacher's internal/config (same sync.RWMutex-guarded Config, env-override
// idiom, Default()/Load()/Save() shape), narrowed from its channel/agent
// surface to this system's Gateway/Session/Browser/Planner/Storage shape.
package config

import (
	"sync"
	"time"

	"github.com/marcelontime/browser-automation-sub001/internal/errkind"
)

// Config is the root configuration for the session orchestrator.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Session   SessionConfig   `json:"session"`
	Browser   BrowserConfig   `json:"browser"`
	Planner   PlannerConfig   `json:"planner"`
	Storage   StorageConfig   `json:"storage"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	mu sync.RWMutex
}

// GatewayConfig configures the Client Gateway's listener (spec §4.7, §6).
type GatewayConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	Token          string   `json:"-"` // env-only, never persisted (BAS_GATEWAY_TOKEN)
	RateLimitRPM   int      `json:"rate_limit_rpm"`
}

// SessionConfig configures the Session Manager (spec §4.6).
type SessionConfig struct {
	IdleTimeout             time.Duration `json:"idle_timeout"`
	MaxConcurrentExecutions int           `json:"max_concurrent_executions"`
	HistoryCapacity         int           `json:"history_capacity"`
}

// BrowserConfig configures the Browser Worker's driver (spec §4.1).
type BrowserConfig struct {
	Headless              bool          `json:"headless"`
	DefaultActionDeadline time.Duration `json:"default_action_deadline"`
	ViewportWidth         int           `json:"viewport_width"`
	ViewportHeight        int           `json:"viewport_height"`
}

// PlannerConfig configures the tier-3 LLM planning strategy (spec §4.2).
type PlannerConfig struct {
	Endpoint string `json:"endpoint,omitempty"`
	APIKey   string `json:"-"` // env-only, never persisted (BAS_PLANNER_API_KEY)
	Model    string `json:"model,omitempty"`
}

// StorageConfig configures the Script Store's persistence backend (spec §4.4).
type StorageConfig struct {
	Root    string `json:"root"`
	Backend string `json:"backend"` // "file" (default) or "sqlite"
}

// TelemetryConfig configures OpenTelemetry span export (SPEC_FULL §4.12).
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Insecure    bool   `json:"insecure,omitempty"`
}

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 7079
)

// Default returns a Config populated with the spec's documented defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         DefaultHost,
			Port:         DefaultPort,
			RateLimitRPM: 60,
		},
		Session: SessionConfig{
			IdleTimeout:             5 * time.Minute,
			MaxConcurrentExecutions: 5,
			HistoryCapacity:         50,
		},
		Browser: BrowserConfig{
			Headless:              true,
			DefaultActionDeadline: 30 * time.Second,
			ViewportWidth:         1280,
			ViewportHeight:        800,
		},
		Storage: StorageConfig{
			Root:    "~/.basctl/scripts",
			Backend: "file",
		},
	}
}

// Validate reports a ConfigError for any missing or out-of-range required
// field (SPEC_FULL §4.10: "missing/invalid fields are a ConfigError, causing
// CLI exit code 1").
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return errkind.Newf(errkind.ConfigError, "gateway.port out of range: %d", c.Gateway.Port)
	}
	if c.Gateway.RateLimitRPM < 0 {
		return errkind.Newf(errkind.ConfigError, "gateway.rate_limit_rpm must be >= 0, got %d", c.Gateway.RateLimitRPM)
	}
	if c.Session.MaxConcurrentExecutions <= 0 {
		return errkind.Newf(errkind.ConfigError, "session.max_concurrent_executions must be > 0, got %d", c.Session.MaxConcurrentExecutions)
	}
	if c.Storage.Backend != "file" && c.Storage.Backend != "sqlite" {
		return errkind.Newf(errkind.ConfigError, "storage.backend must be \"file\" or \"sqlite\", got %q", c.Storage.Backend)
	}
	if c.Storage.Root == "" {
		return errkind.New(errkind.ConfigError, "storage.root must not be empty")
	}
	return nil
}

// Snapshot returns a copy of the config safe to read without holding the
// lock further, used by components that need a point-in-time view (the
// hot-reloadable fields may change under them between reads otherwise).
func (c *Config) Snapshot() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := *c
	cp.mu = sync.RWMutex{}
	cp.Gateway.AllowedOrigins = append([]string(nil), c.Gateway.AllowedOrigins...)
	return cp
}
