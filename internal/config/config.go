// Package config loads resonance configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all resonance configuration.
type Config struct {
	// Trajectory storage
	Database DatabaseConfig `yaml:"database"`

	// Direct web access for artifact verification and evidence search
	Web WebConfig `yaml:"web"`

	// Agent-backed evidence fulfilment
	Agent AgentConfig `yaml:"agent"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig configures the SQLite trajectory store.
type DatabaseConfig struct {
	// Path to the database file. Empty keeps everything in memory.
	Path string `yaml:"path"`
}

// WebConfig configures the direct HTTP client.
type WebConfig struct {
	Enabled           bool    `yaml:"enabled"`
	UserAgent         string  `yaml:"user_agent"`
	Timeout           string  `yaml:"timeout"`
	CacheTTL          string  `yaml:"cache_ttl"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // per-host rate limit
	SearchEndpoint    string  `yaml:"search_endpoint"`     // search disabled when empty
	SearchAPIKey      string  `yaml:"search_api_key"`
}

// AgentConfig configures the Anthropic-backed evidence fulfiller.
type AgentConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/resonance.db",
		},
		Web: WebConfig{
			Enabled:           true,
			Timeout:           "15s",
			CacheTTL:          "1h",
			RequestsPerSecond: 1.0,
		},
		Agent: AgentConfig{
			Model: "claude-sonnet-4-5",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultPath returns the config file path, honouring RESONANCE_CONFIG.
func DefaultPath() string {
	if path := os.Getenv("RESONANCE_CONFIG"); path != "" {
		return path
	}
	return "resonance.yaml"
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path, ok := os.LookupEnv("RESONANCE_DB"); ok {
		c.Database.Path = path
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.Agent.APIKey = key
	}
	if os.Getenv("RESONANCE_WEB_DISABLED") != "" {
		c.Web.Enabled = false
	}
}

// GetWebTimeout returns the web request timeout as a duration.
func (c *Config) GetWebTimeout() time.Duration {
	d, err := time.ParseDuration(c.Web.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// GetCacheTTL returns the web cache TTL as a duration.
func (c *Config) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Web.CacheTTL)
	if err != nil {
		return time.Hour
	}
	return d
}

// HasAgent reports whether an agent-backed evidence fulfiller can be built.
func (c *Config) HasAgent() bool {
	return c.Agent.APIKey != ""
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Web.Timeout != "" {
		if _, err := time.ParseDuration(c.Web.Timeout); err != nil {
			return fmt.Errorf("invalid web timeout %q: %w", c.Web.Timeout, err)
		}
	}
	if c.Web.CacheTTL != "" {
		if _, err := time.ParseDuration(c.Web.CacheTTL); err != nil {
			return fmt.Errorf("invalid web cache TTL %q: %w", c.Web.CacheTTL, err)
		}
	}
	if c.Web.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative: %f", c.Web.RequestsPerSecond)
	}
	return nil
}
