package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is non-empty; a missing file is an error), then environment
// variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables. TASKMESH_* names cover the full
// surface; API_SERVER_URL and PUBLIC_URL are honored for compatibility with
// existing deployments of the original service.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Addr, "TASKMESH_ADDR")
	setString(&cfg.Server.PublicURL, "TASKMESH_PUBLIC_URL", "PUBLIC_URL")

	setDuration(&cfg.Cooldown.Period, "TASKMESH_COOLDOWN_PERIOD")
	setString(&cfg.Cooldown.Store, "TASKMESH_COOLDOWN_STORE")
	setString(&cfg.Cooldown.URL, "TASKMESH_COOLDOWN_URL", "API_SERVER_URL")
	setString(&cfg.Cooldown.RedisAddr, "TASKMESH_REDIS_ADDR")
	setInt(&cfg.Cooldown.RedisDB, "TASKMESH_REDIS_DB")

	setString(&cfg.Model.Provider, "TASKMESH_MODEL_PROVIDER")
	setString(&cfg.Model.Name, "TASKMESH_MODEL_NAME")

	setDuration(&cfg.Run.NodeTimeout, "TASKMESH_NODE_TIMEOUT")
	setDuration(&cfg.Run.RunTimeout, "TASKMESH_RUN_TIMEOUT")

	setString(&cfg.Log.Level, "TASKMESH_LOG_LEVEL")
	setString(&cfg.Log.Format, "TASKMESH_LOG_FORMAT")

	// An explicit cooldown URL implies the http store unless another
	// backend was chosen deliberately.
	if cfg.Cooldown.URL != "" && cfg.Cooldown.Store == "memory" {
		cfg.Cooldown.Store = "http"
	}
}

// setString assigns the first non-empty value among the named variables.
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

func setInt(dst *int, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setDuration(dst *time.Duration, name string) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
