// Package config provides configuration loading and validation.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Assets  AssetsConfig  `yaml:"assets"`
	Cache   CacheConfig   `yaml:"cache"`
	Render  RenderConfig  `yaml:"render"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// AssetsConfig configures client asset versioning. A stale version on a
// GET triggers the transport's 409 refresh flow.
type AssetsConfig struct {
	// Version pins the asset version explicitly.
	Version string `yaml:"version,omitempty"`

	// ManifestPath, when set, derives the version from the manifest
	// file's content hash. Takes precedence over Version.
	ManifestPath string `yaml:"manifest_path,omitempty"`
}

// CacheConfig configures the server-side once-prop cache.
type CacheConfig struct {
	// Mode selects the once-cache backend: "memory" or "sqlite".
	Mode string `yaml:"mode"`

	// DSN is the sqlite database path (sqlite mode only).
	DSN string `yaml:"dsn,omitempty"`
}

// RenderConfig configures how resolved props are presented to the client.
type RenderConfig struct {
	// RootTemplate is the HTML shell template path for first loads.
	// Empty uses the built-in shell.
	RootTemplate string `yaml:"root_template,omitempty"`

	// CamelCaseProps converts snake_case prop names to camelCase in the
	// serialized payload. Defaults to true.
	CamelCaseProps *bool `yaml:"camel_case_props,omitempty"`

	// StrictRuntimeChecks enables required-prop assertions for dynamic
	// (unchecked) prop sets. Meant for development and test runs.
	StrictRuntimeChecks bool `yaml:"strict_runtime_checks,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// Useful for container deployments where no config file is mounted.
//
// Environment variables:
//
//	INERTIA_SERVER_HOST    - Server host (default: 0.0.0.0)
//	INERTIA_SERVER_PORT    - Server port (default: 8080)
//	INERTIA_ASSET_VERSION  - Asset version string
//	INERTIA_CACHE_MODE     - Once-cache backend: memory or sqlite
//	INERTIA_CACHE_DSN      - SQLite path for the once cache
//	INERTIA_LOG_LEVEL      - Log level: debug, info, warn, error
//	INERTIA_LOG_FORMAT     - Log format: json or console
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables when the file is absent.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies INERTIA_* environment variables to the
// config. Environment variables always override file-based values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INERTIA_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("INERTIA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("INERTIA_ASSET_VERSION"); v != "" {
		cfg.Assets.Version = v
	}
	if v := os.Getenv("INERTIA_CACHE_MODE"); v != "" {
		cfg.Cache.Mode = v
	}
	if v := os.Getenv("INERTIA_CACHE_DSN"); v != "" {
		cfg.Cache.DSN = v
	}
	if v := os.Getenv("INERTIA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INERTIA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// setDefaults fills unset fields with sensible defaults.
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Cache.Mode == "" {
		cfg.Cache.Mode = "memory"
	}
	if cfg.Cache.Mode == "sqlite" && cfg.Cache.DSN == "" {
		cfg.Cache.DSN = "inertia.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate checks configuration consistency.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	switch cfg.Cache.Mode {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("cache.mode %q: must be memory or sqlite", cfg.Cache.Mode)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q: must be json or console", cfg.Logging.Format)
	}
	return nil
}

// AssetVersion resolves the effective asset version. When a manifest
// path is configured the version is the hex sha256 of the manifest
// content, so deploys change it automatically.
func (c *Config) AssetVersion() (string, error) {
	if c.Assets.ManifestPath != "" {
		data, err := os.ReadFile(c.Assets.ManifestPath)
		if err != nil {
			return "", fmt.Errorf("read asset manifest: %w", err)
		}
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:16]), nil
	}
	return c.Assets.Version, nil
}

// CamelCaseProps reports the effective prop-casing setting.
func (c *Config) CamelCaseProps() bool {
	if c.Render.CamelCaseProps == nil {
		return true
	}
	return *c.Render.CamelCaseProps
}
