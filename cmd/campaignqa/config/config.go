// Package config provides configuration structures for the campaignqa CLI.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TFMV/campaignqa/pkg/generation"
	"github.com/TFMV/campaignqa/pkg/infrastructure/converter"
	"github.com/TFMV/campaignqa/pkg/infrastructure/pool"
)

// Config represents the CLI configuration.
type Config struct {
	// Dataset settings
	Dataset  string `mapstructure:"dataset" yaml:"dataset"`
	Engine   string `mapstructure:"engine" yaml:"engine"`
	Database string `mapstructure:"database" yaml:"database"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	QueryTimeout    time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
	MaxRows         int           `mapstructure:"max_rows" yaml:"max_rows"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// Text generation
	Generation generation.Config `mapstructure:"generation" yaml:"generation"`

	// Result cache
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Connection pool
	ConnectionPool ConnectionPoolConfig `mapstructure:"connection_pool" yaml:"connection_pool"`

	// Metrics
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// CacheConfig represents result cache configuration.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	MaxSize int64         `mapstructure:"max_size" yaml:"max_size"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// ConnectionPoolConfig represents connection pool configuration.
type ConnectionPoolConfig struct {
	MaxOpenConnections int           `mapstructure:"max_open_connections" yaml:"max_open_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections" yaml:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	HealthCheckPeriod  time.Duration `mapstructure:"health_check_period" yaml:"health_check_period"`
	ConnectionTimeout  time.Duration `mapstructure:"connection_timeout" yaml:"connection_timeout"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold" yaml:"slow_query_threshold"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Address   string `mapstructure:"address" yaml:"address"`
	Path      string `mapstructure:"path" yaml:"path"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Validate fills defaults and rejects unusable settings.
func (c *Config) Validate() error {
	c.Engine = strings.ToLower(strings.TrimSpace(c.Engine))
	switch c.Engine {
	case "":
		c.Engine = pool.DriverDuckDB
	case pool.DriverDuckDB, pool.DriverSQLite:
	default:
		return fmt.Errorf("unsupported engine: %s", c.Engine)
	}

	if c.Database == "" {
		c.Database = ":memory:"
	}

	c.Generation.Provider = strings.ToLower(strings.TrimSpace(c.Generation.Provider))
	switch c.Generation.Provider {
	case "":
		c.Generation.Provider = generation.ProviderOpenAI
	case generation.ProviderOpenAI, generation.ProviderGemini:
	default:
		return fmt.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}
	if c.Generation.Model == "" {
		if c.Generation.Provider == generation.ProviderGemini {
			c.Generation.Model = generation.DefaultGeminiModel
		} else {
			c.Generation.Model = generation.DefaultOpenAIModel
		}
	}
	if c.Generation.Provider == generation.ProviderOpenAI && c.Generation.BaseURL == "" {
		c.Generation.BaseURL = generation.DefaultOpenAIBaseURL
	}
	if c.Generation.Timeout <= 0 {
		c.Generation.Timeout = generation.DefaultTimeout
	}

	switch c.LogLevel {
	case "":
		c.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.LogLevel)
	}
	switch c.LogFormat {
	case "":
		c.LogFormat = "json"
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format: %s", c.LogFormat)
	}

	if c.QueryTimeout < 0 {
		return fmt.Errorf("query timeout cannot be negative")
	}
	if c.MaxRows <= 0 {
		c.MaxRows = converter.DefaultMaxRows
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}

	// Set defaults for cache
	if c.Cache.MaxSize <= 0 {
		c.Cache.MaxSize = 64 * 1024 * 1024
	}

	// Set defaults for connection pool
	if c.ConnectionPool.MaxOpenConnections <= 0 {
		c.ConnectionPool.MaxOpenConnections = 4
	}
	if c.ConnectionPool.MaxIdleConnections <= 0 {
		c.ConnectionPool.MaxIdleConnections = 2
	}
	if c.ConnectionPool.MaxIdleConnections > c.ConnectionPool.MaxOpenConnections {
		c.ConnectionPool.MaxIdleConnections = c.ConnectionPool.MaxOpenConnections
	}
	if c.ConnectionPool.ConnectionTimeout <= 0 {
		c.ConnectionPool.ConnectionTimeout = 30 * time.Second
	}
	if c.ConnectionPool.SlowQueryThreshold <= 0 {
		c.ConnectionPool.SlowQueryThreshold = time.Second
	}

	// Set defaults for metrics
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	return nil
}

// Redacted returns a copy safe to print: the API key is masked.
func (c *Config) Redacted() *Config {
	cp := *c
	if key := cp.Generation.APIKey; key != "" {
		if len(key) > 8 {
			cp.Generation.APIKey = key[:4] + "****"
		} else {
			cp.Generation.APIKey = "****"
		}
	}
	return &cp
}

// LoadFromFile loads configuration from a YAML file on top of DefaultConfig.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine:          pool.DriverDuckDB,
		Database:        ":memory:",
		LogLevel:        "info",
		LogFormat:       "json",
		MaxRows:         converter.DefaultMaxRows,
		ShutdownTimeout: 10 * time.Second,
		Generation: generation.Config{
			Provider: generation.ProviderOpenAI,
			BaseURL:  generation.DefaultOpenAIBaseURL,
			Model:    generation.DefaultOpenAIModel,
			Timeout:  generation.DefaultTimeout,
		},
		Cache: CacheConfig{
			Enabled: true,
			MaxSize: 64 * 1024 * 1024, // 64MB
		},
		ConnectionPool: ConnectionPoolConfig{
			MaxOpenConnections: 4,
			MaxIdleConnections: 2,
			ConnMaxLifetime:    30 * time.Minute,
			ConnMaxIdleTime:    10 * time.Minute,
			HealthCheckPeriod:  time.Minute,
			ConnectionTimeout:  30 * time.Second,
			SlowQueryThreshold: time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Address:   ":9090",
			Path:      "/metrics",
			Namespace: "campaignqa",
		},
	}
}

// PoolConfig maps the settings onto the connection pool configuration.
func (c *Config) PoolConfig() pool.Config {
	return pool.Config{
		Driver:                 c.Engine,
		DSN:                    c.Database,
		MaxOpenConnections:     c.ConnectionPool.MaxOpenConnections,
		MaxIdleConnections:     c.ConnectionPool.MaxIdleConnections,
		ConnMaxLifetime:        c.ConnectionPool.ConnMaxLifetime,
		ConnMaxIdleTime:        c.ConnectionPool.ConnMaxIdleTime,
		HealthCheckPeriod:      c.ConnectionPool.HealthCheckPeriod,
		ConnectionTimeout:      c.ConnectionPool.ConnectionTimeout,
		EnableSlowQueryLogging: true,
		SlowQueryThreshold:     c.ConnectionPool.SlowQueryThreshold,
	}
}
