// Package config loads service configuration from environment variables,
// with an optional YAML file overriding the timer policy values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"timerd.db"`

	// Auth
	AuthMode  string `envconfig:"AUTH_MODE" default:"jwt"` // "jwt" or "none"
	JWTSecret string `envconfig:"JWT_SECRET"`

	// HTTP hardening
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"100"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`

	// Timer policy (overridable via TIMER_POLICY_FILE)
	TimerPolicyFile      string        `envconfig:"TIMER_POLICY_FILE"`
	MaxSessionAge        time.Duration `envconfig:"TIMER_MAX_AGE" default:"24h"`
	FutureStartTolerance time.Duration `envconfig:"TIMER_FUTURE_TOLERANCE" default:"5s"`
	MinSessionDuration   time.Duration `envconfig:"TIMER_MIN_DURATION" default:"10s"`
	DefaultVisibility    string        `envconfig:"TIMER_DEFAULT_VISIBILITY" default:"everyone"`
	HeartbeatInterval    time.Duration `envconfig:"TIMER_HEARTBEAT_INTERVAL" default:"1m"`

	// Cache bridge
	CacheCapacity int `envconfig:"CACHE_CAPACITY" default:"4096"`
}

// policyFile is the YAML shape of TIMER_POLICY_FILE. All fields optional;
// durations use Go syntax ("24h", "10s").
type policyFile struct {
	MaxSessionAge        string `yaml:"max_session_age"`
	FutureStartTolerance string `yaml:"future_start_tolerance"`
	MinSessionDuration   string `yaml:"min_session_duration"`
	DefaultVisibility    string `yaml:"default_visibility"`
	HeartbeatInterval    string `yaml:"heartbeat_interval"`
}

// Load reads configuration from environment variables and, if configured,
// applies the YAML policy file on top.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.TimerPolicyFile != "" {
		if err := cfg.applyPolicyFile(cfg.TimerPolicyFile); err != nil {
			return nil, err
		}
	}

	if cfg.AuthMode == "jwt" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required when AUTH_MODE=jwt")
	}

	return &cfg, nil
}

func (c *Config) applyPolicyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	overrides := []struct {
		raw  string
		dst  *time.Duration
		name string
	}{
		{pf.MaxSessionAge, &c.MaxSessionAge, "max_session_age"},
		{pf.FutureStartTolerance, &c.FutureStartTolerance, "future_start_tolerance"},
		{pf.MinSessionDuration, &c.MinSessionDuration, "min_session_duration"},
		{pf.HeartbeatInterval, &c.HeartbeatInterval, "heartbeat_interval"},
	}
	for _, o := range overrides {
		if o.raw == "" {
			continue
		}
		d, err := time.ParseDuration(o.raw)
		if err != nil {
			return fmt.Errorf("policy file %s: invalid %s %q: %w", path, o.name, o.raw, err)
		}
		*o.dst = d
	}

	if pf.DefaultVisibility != "" {
		c.DefaultVisibility = pf.DefaultVisibility
	}

	return nil
}

// Development reports whether the service runs in development mode.
func (c *Config) Development() bool {
	return c.Environment == "development"
}
