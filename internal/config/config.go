// Package config loads client configuration from an optional YAML file and
// the environment. Environment variables win over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything needed to run a dashboard client.
type Config struct {
	// ServerURL is the base URL of the realtime dashboard server.
	ServerURL string `yaml:"server_url"`
	// Path overrides the handshake path. Empty keeps the server default.
	Path string `yaml:"path"`
	// Transports is the fallback order, e.g. [websocket, polling].
	Transports []string `yaml:"transports"`

	// Token is the auth token presented during the handshake. TokenFile,
	// when set, is read instead.
	Token     string `yaml:"token"`
	TokenFile string `yaml:"token_file"`

	// HealthInterval is the ping period; HealthDeadline is how long a
	// ping may stay unanswered.
	HealthInterval time.Duration `yaml:"health_interval"`
	HealthDeadline time.Duration `yaml:"health_deadline"`

	// MaxActivities, MaxNotifications and MaxSecurityAlerts cap the
	// in-memory stores. Zero keeps the built-in defaults.
	MaxActivities      int `yaml:"max_activities"`
	MaxNotifications   int `yaml:"max_notifications"`
	MaxSecurityAlerts  int `yaml:"max_security_alerts"`

	// LogLevel selects the log verbosity (trace|debug|info|warn|error).
	LogLevel string `yaml:"log_level"`
	// Debug forces trace logging regardless of LogLevel.
	Debug bool `yaml:"debug"`
}

// Load reads the config file named by COURSELOOP_CONFIG (falling back to
// ~/.courseloop/pulse.yaml when present) and applies environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Transports: []string{"websocket", "polling"},
		LogLevel:   "info",
	}

	path := os.Getenv("COURSELOOP_CONFIG")
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			candidate := filepath.Join(home, ".courseloop", "pulse.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server URL is required (set COURSELOOP_SERVER_URL or server_url)")
	}
	return cfg, nil
}

// ResolveToken returns the auth token, reading TokenFile when set.
func (c *Config) ResolveToken() (string, error) {
	if c.TokenFile != "" {
		raw, err := os.ReadFile(c.TokenFile)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		return trimToken(string(raw)), nil
	}
	if c.Token == "" {
		return "", fmt.Errorf("no token configured (set COURSELOOP_TOKEN or token_file)")
	}
	return c.Token, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("COURSELOOP_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("COURSELOOP_PATH"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("COURSELOOP_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("COURSELOOP_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("COURSELOOP_HEALTH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HealthInterval = d
		}
	}
	if v := os.Getenv("COURSELOOP_HEALTH_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HealthDeadline = d
		}
	}
	if v := os.Getenv("COURSELOOP_MAX_NOTIFICATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxNotifications = n
		}
	}
	if v := os.Getenv("COURSELOOP_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}
}

func trimToken(s string) string {
	for len(s) > 0 {
		last := s[len(s)-1]
		if last != '\n' && last != '\r' && last != ' ' && last != '\t' {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}
