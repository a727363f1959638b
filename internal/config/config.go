package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all axo configuration.
type Config struct {
	// Remote API
	API APIConfig `yaml:"api"`

	// Durable client-side state (token, theme)
	Storage StorageConfig `yaml:"storage"`

	// Pet detail refresh loop
	Poll PollConfig `yaml:"poll"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Optional Prometheus listener
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	BaseURL   string  `yaml:"base_url"`
	Timeout   string  `yaml:"timeout"`    // empty or "0" = no client-side timeout
	RateLimit float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Burst     int     `yaml:"burst"`
	UserAgent string  `yaml:"user_agent"`
}

// StorageConfig selects the durable key/value backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // file, sqlite, memory
	Dir    string `yaml:"dir"`
}

// PollConfig configures the pet detail polling controller.
type PollConfig struct {
	Interval string `yaml:"interval"`
}

// MetricsConfig configures the optional /metrics listener.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty = disabled
}

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// ValidDrivers lists all supported storage drivers.
var ValidDrivers = []string{DriverFile, DriverSQLite, DriverMemory}

// DefaultPollInterval is the refresh period of the pet detail view.
const DefaultPollInterval = 5 * time.Second

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:8080",
			UserAgent: "axo/1.0",
			Burst:     1,
		},
		Storage: StorageConfig{
			Driver: DriverFile,
		},
		Poll: PollConfig{
			Interval: DefaultPollInterval.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "axo.log",
		},
	}
}

// Dir returns the directory holding config.yaml and, by default, all state.
func Dir() (string, error) {
	if dir := os.Getenv("AXO_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".axo"), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file in the working directory is read first; it never overrides
// variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Storage.Dir == "" {
		if path != "" {
			cfg.Storage.Dir = filepath.Dir(path)
		} else if dir, err := Dir(); err == nil {
			cfg.Storage.Dir = dir
		}
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AXO_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("AXO_API_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv("AXO_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.RateLimit = f
		}
	}
	if v := os.Getenv("AXO_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("AXO_STATE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("AXO_POLL_INTERVAL"); v != "" {
		c.Poll.Interval = v
	}
	if v := os.Getenv("AXO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("AXO_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
}

// GetAPITimeout returns the request timeout. Zero means none.
func (c *Config) GetAPITimeout() time.Duration {
	if c.API.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// GetPollInterval returns the polling interval as a duration.
func (c *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(c.Poll.Interval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: must be an absolute http(s) URL", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid api.base_url %q: unsupported scheme %s", c.API.BaseURL, u.Scheme)
	}

	if c.API.Timeout != "" {
		if d, err := time.ParseDuration(c.API.Timeout); err != nil || d < 0 {
			return fmt.Errorf("invalid api.timeout %q", c.API.Timeout)
		}
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("invalid api.rate_limit %v: must not be negative", c.API.RateLimit)
	}

	if d, err := time.ParseDuration(c.Poll.Interval); err != nil || d <= 0 {
		return fmt.Errorf("invalid poll.interval %q: must be a positive duration", c.Poll.Interval)
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage.driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}

	return c.Logging.Validate()
}
