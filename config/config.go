// Package config carries the runtime configuration for a taskmesh binary:
// server address, cooldown gate settings, model selection, and run bounds.
// Values resolve in three layers: built-in defaults, then an optional YAML
// file, then environment variables.
package config

import (
	"fmt"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Cooldown CooldownConfig `yaml:"cooldown"`
	Model    ModelConfig    `yaml:"model"`
	Run      RunConfig      `yaml:"run"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// PublicURL is the externally reachable base URL advertised in the
	// capability card.
	PublicURL       string        `yaml:"public_url"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CooldownConfig configures the admission gate.
type CooldownConfig struct {
	// Period is the cooldown window armed on each admitted use.
	Period time.Duration `yaml:"period"`
	// Store selects the backend: "memory", "http", or "redis".
	Store string `yaml:"store"`
	// URL is the usage-tracking service base URL for the http store.
	URL string `yaml:"url"`
	// RedisAddr/RedisDB configure the redis store.
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	// Nodes restricts the gate to the named nodes; empty guards all.
	Nodes []string `yaml:"nodes"`
}

// ModelConfig selects the reasoning engine.
type ModelConfig struct {
	// Provider is "anthropic", "openai", or "mock".
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// RunConfig bounds workflow execution.
type RunConfig struct {
	NodeTimeout time.Duration `yaml:"node_timeout"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Cooldown: CooldownConfig{
			Period: time.Minute,
			Store:  "memory",
		},
		Model: ModelConfig{
			Provider:    "mock",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Run: RunConfig{
			NodeTimeout: 2 * time.Minute,
			RunTimeout:  10 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.Cooldown.Store {
	case "memory", "":
	case "http":
		if c.Cooldown.URL == "" {
			return fmt.Errorf("cooldown store %q requires a url", c.Cooldown.Store)
		}
	case "redis":
		if c.Cooldown.RedisAddr == "" {
			return fmt.Errorf("cooldown store %q requires redis_addr", c.Cooldown.Store)
		}
	default:
		return fmt.Errorf("unknown cooldown store %q", c.Cooldown.Store)
	}

	if c.Cooldown.Period < 0 {
		return fmt.Errorf("cooldown period must not be negative")
	}

	switch c.Model.Provider {
	case "anthropic", "openai", "mock", "":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}

	return nil
}
