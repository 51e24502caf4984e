package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// hotReloadable is the subset of Config that Watch swaps on a config-file
// change without a process restart (SPEC_FULL §4.10: "secrets and the
// listen address are fixed at process start"). time.Duration fields decode
// straight from the file's nanosecond integers, same as the main Config.
type hotReloadable struct {
	Gateway struct {
		AllowedOrigins []string `json:"allowed_origins"`
		RateLimitRPM   int      `json:"rate_limit_rpm"`
	} `json:"gateway"`
	Session struct {
		IdleTimeout             time.Duration `json:"idle_timeout"`
		MaxConcurrentExecutions int           `json:"max_concurrent_executions"`
		HistoryCapacity         int           `json:"history_capacity"`
	} `json:"session"`
	Browser struct {
		DefaultActionDeadline time.Duration `json:"default_action_deadline"`
	} `json:"browser"`
}

// Watch watches path for changes and swaps c's hot-reloadable fields in
// place whenever the file is rewritten. Returns a stop func; the watch
// itself runs until ctx-independent stop() is called (there is no
// supporting context here since fsnotify.Watcher has its own lifecycle).
func Watch(path string, c *Config) (stop func() error, err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					reload(path, c)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config.watch_error", "error", err)
			}
		}
	}()

	return w.Close, nil
}

func reload(path string, c *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("config.reload_read_failed", "error", err)
		return
	}
	var hr hotReloadable
	if err := json.Unmarshal(data, &hr); err != nil {
		slog.Warn("config.reload_parse_failed", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Gateway.AllowedOrigins = hr.Gateway.AllowedOrigins
	if hr.Gateway.RateLimitRPM > 0 {
		c.Gateway.RateLimitRPM = hr.Gateway.RateLimitRPM
	}
	if hr.Session.MaxConcurrentExecutions > 0 {
		c.Session.MaxConcurrentExecutions = hr.Session.MaxConcurrentExecutions
	}
	if hr.Session.HistoryCapacity > 0 {
		c.Session.HistoryCapacity = hr.Session.HistoryCapacity
	}
	if hr.Session.IdleTimeout > 0 {
		c.Session.IdleTimeout = hr.Session.IdleTimeout
	}
	if hr.Browser.DefaultActionDeadline > 0 {
		c.Browser.DefaultActionDeadline = hr.Browser.DefaultActionDeadline
	}
	slog.Info("config.reloaded", "path", path)
}
