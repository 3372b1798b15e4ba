// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/skema/engine"
	"github.com/reoring/skema/registry"
)

// Config is the root configuration structure.
type Config struct {
	System     SystemConfig     `yaml:"system"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Server     ServerConfig     `yaml:"server"`
}

// SystemConfig holds filesystem locations.
type SystemConfig struct {
	Dirs DirsConfig `yaml:"dirs"`
}

// DirsConfig lists the directories scanned for schema files.
type DirsConfig struct {
	Schemas []string `yaml:"schemas"`
}

// ValidationConfig configures the validation engine. Unset booleans default
// to true.
type ValidationConfig struct {
	AllErrors        *bool  `yaml:"allErrors"`
	RemoveAdditional *bool  `yaml:"removeAdditional"`
	UseDefaults      *bool  `yaml:"useDefaults"`
	CoerceTypes      *bool  `yaml:"coerceTypes"`
	Draft            string `yaml:"draft"`       // "draft4" .. "draft2020-12"
	OnDuplicate      string `yaml:"onDuplicate"` // "overwrite" or "keepFirst"
	CacheSize        int    `yaml:"cacheSize"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "trace", "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// ServerConfig configures the HTTP server of "skema serve".
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// EngineOptions converts the validation section into engine options.
func (v ValidationConfig) EngineOptions() engine.Options {
	return engine.Options{
		AllErrors:        enabled(v.AllErrors),
		RemoveAdditional: enabled(v.RemoveAdditional),
		UseDefaults:      enabled(v.UseDefaults),
		CoerceTypes:      enabled(v.CoerceTypes),
		Draft:            v.Draft,
		CacheSize:        v.CacheSize,
	}
}

// DuplicatePolicy returns the parsed onDuplicate setting.
func (v ValidationConfig) DuplicatePolicy() registry.DuplicatePolicy {
	p, _ := registry.ParseDuplicatePolicy(v.OnDuplicate)
	return p
}

func enabled(b *bool) bool { return b == nil || *b }

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
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

	// Schema directories are relative to the config file.
	base := filepath.Dir(path)
	for i, dir := range cfg.System.Dirs.Schemas {
		if !filepath.IsAbs(dir) {
			cfg.System.Dirs.Schemas[i] = filepath.Join(base, dir)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	SKEMA_SCHEMA_DIRS                  - Schema directories, list separated (default: ./schemas)
//	SKEMA_VALIDATION_ALL_ERRORS        - Collect all violations (default: true)
//	SKEMA_VALIDATION_REMOVE_ADDITIONAL - Strip undeclared properties (default: true)
//	SKEMA_VALIDATION_USE_DEFAULTS      - Insert schema defaults (default: true)
//	SKEMA_VALIDATION_COERCE_TYPES      - Coerce scalar types (default: true)
//	SKEMA_VALIDATION_DRAFT             - Default draft (default: draft7)
//	SKEMA_LOG_LEVEL                    - Log level: trace, debug, info, warn, error (default: info)
//	SKEMA_LOG_FORMAT                   - Log format: json or console (default: json)
//	SKEMA_SERVER_ADDR                  - Listen address (default: :8080)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to environment
// variables otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies SKEMA_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SKEMA_SCHEMA_DIRS"); v != "" {
		cfg.System.Dirs.Schemas = filepath.SplitList(v)
	}

	if v := os.Getenv("SKEMA_VALIDATION_ALL_ERRORS"); v != "" {
		cfg.Validation.AllErrors = boolPtr(parseBool(v))
	}
	if v := os.Getenv("SKEMA_VALIDATION_REMOVE_ADDITIONAL"); v != "" {
		cfg.Validation.RemoveAdditional = boolPtr(parseBool(v))
	}
	if v := os.Getenv("SKEMA_VALIDATION_USE_DEFAULTS"); v != "" {
		cfg.Validation.UseDefaults = boolPtr(parseBool(v))
	}
	if v := os.Getenv("SKEMA_VALIDATION_COERCE_TYPES"); v != "" {
		cfg.Validation.CoerceTypes = boolPtr(parseBool(v))
	}
	if v := os.Getenv("SKEMA_VALIDATION_DRAFT"); v != "" {
		cfg.Validation.Draft = v
	}
	if v := os.Getenv("SKEMA_VALIDATION_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Validation.CacheSize = n
		}
	}

	if v := os.Getenv("SKEMA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SKEMA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("SKEMA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("SKEMA_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func boolPtr(b bool) *bool { return &b }

func setDefaults(cfg *Config) {
	if len(cfg.System.Dirs.Schemas) == 0 {
		cfg.System.Dirs.Schemas = []string{"./schemas"}
	}

	if cfg.Validation.AllErrors == nil {
		cfg.Validation.AllErrors = boolPtr(true)
	}
	if cfg.Validation.RemoveAdditional == nil {
		cfg.Validation.RemoveAdditional = boolPtr(true)
	}
	if cfg.Validation.UseDefaults == nil {
		cfg.Validation.UseDefaults = boolPtr(true)
	}
	if cfg.Validation.CoerceTypes == nil {
		cfg.Validation.CoerceTypes = boolPtr(true)
	}
	if cfg.Validation.Draft == "" {
		cfg.Validation.Draft = "draft7"
	}
	if cfg.Validation.OnDuplicate == "" {
		cfg.Validation.OnDuplicate = registry.Overwrite.String()
	}
	if cfg.Validation.CacheSize == 0 {
		cfg.Validation.CacheSize = 128
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

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func validate(cfg *Config) error {
	if _, err := engine.ParseDraft(cfg.Validation.Draft); err != nil {
		return fmt.Errorf("validation.draft: %w", err)
	}
	if _, err := registry.ParseDuplicatePolicy(cfg.Validation.OnDuplicate); err != nil {
		return fmt.Errorf("validation.onDuplicate: %w", err)
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, got %q", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}
