package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Logging configuration
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// HTTP server configuration
	HTTPPort         string        `envconfig:"HTTP_PORT" default:"8080"`
	MetricsPort      string        `envconfig:"METRICS_PORT" default:"9090"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"30s"`
	HTTPIdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Redis configuration. RedisDB -1 keeps the database from RedisURL.
	RedisURL             string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisDB              int           `envconfig:"REDIS_DB" default:"-1"`
	RedisDialTimeout     time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	RedisReadTimeout     time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	RedisWriteTimeout    time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	RedisConnectRetries  int           `envconfig:"REDIS_CONNECT_RETRIES" default:"3"`
	RedisConnectInterval time.Duration `envconfig:"REDIS_CONNECT_INTERVAL" default:"1s"`
	HealthCheckInterval  time.Duration `envconfig:"HEALTH_CHECK_INTERVAL" default:"30s"`

	// Accounts
	AccountEventsLimit int64 `envconfig:"ACCOUNT_EVENTS_LIMIT" default:"100"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", c.LogLevel)
	}

	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s (must be json/console)", c.LogFormat)
	}

	if c.HTTPPort == "" {
		return fmt.Errorf("http_port is required")
	}

	if c.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}
	u, err := url.Parse(c.RedisURL)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		return fmt.Errorf("invalid redis_url: %q (must be redis:// or rediss://)", c.RedisURL)
	}

	if c.RedisDB < -1 {
		return fmt.Errorf("invalid redis_db: %d", c.RedisDB)
	}

	if c.RedisConnectRetries < 1 {
		return fmt.Errorf("redis_connect_retries must be at least 1")
	}

	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive")
	}

	if c.AccountEventsLimit < 1 {
		return fmt.Errorf("account_events_limit must be at least 1")
	}

	return nil
}

// ServesMetricsSeparately reports whether /metrics gets its own listener.
func (c *Config) ServesMetricsSeparately() bool {
	return c.MetricsPort != "" && c.MetricsPort != c.HTTPPort
}
