package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/sirupsen/logrus"

	"github.com/bcnelson/waf-ipset-manager/internal/backoff"
	"github.com/bcnelson/waf-ipset-manager/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	AWS      AWSConfig
	Retry    RetryConfig
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
}

// AWSConfig holds the WAF connection settings.
type AWSConfig struct {
	Profile  string       `env:"AWS_PROFILE"`
	Region   string       `env:"AWS_REGION" envDefault:"ap-northeast-1"`
	Scope    domain.Scope `env:"WAF_SCOPE" envDefault:"REGIONAL"`
	FileShim string       `env:"WAF_FILE_SHIM"` // Path to file for testing shim (disables real API)
}

// RetryConfig tunes how update conflicts are retried.
type RetryConfig struct {
	MaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	BaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	MaxDelay    time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
}

// Policy returns the retry settings as a backoff policy.
func (c *RetryConfig) Policy() backoff.Policy {
	return backoff.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		MaxDelay:    c.MaxDelay,
	}
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host   string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port   int    `env:"SERVER_PORT" envDefault:"8080"`
	APIKey string `env:"API_KEY"`
}

// DatabaseConfig holds the operation history store configuration. An empty
// driver keeps history in memory.
type DatabaseConfig struct {
	Driver string `env:"DB_DRIVER"`
	DSN    string `env:"DB_DSN" envDefault:"data/wafip.db"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.AWS); err != nil {
		return nil, fmt.Errorf("parsing aws config: %w", err)
	}
	if err := env.Parse(&cfg.Retry); err != nil {
		return nil, fmt.Errorf("parsing retry config: %w", err)
	}
	if err := env.Parse(&cfg.Server); err != nil {
		return nil, fmt.Errorf("parsing server config: %w", err)
	}
	if err := env.Parse(&cfg.Database); err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return nil, fmt.Errorf("parsing log config: %w", err)
	}

	cfg.AWS.Scope = domain.Scope(strings.ToUpper(string(cfg.AWS.Scope)))
	return cfg, nil
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.AWS.Scope.Valid() {
		return fmt.Errorf("WAF_SCOPE must be REGIONAL or CLOUDFRONT, got %q", c.AWS.Scope)
	}
	if c.AWS.Scope == domain.ScopeCloudFront && c.AWS.FileShim == "" && c.AWS.Region != "us-east-1" {
		return fmt.Errorf("CLOUDFRONT scope requires AWS_REGION=us-east-1")
	}
	if c.AWS.FileShim == "" && c.AWS.Region == "" {
		return fmt.Errorf("AWS_REGION is required (or set WAF_FILE_SHIM for testing)")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("RETRY_BASE_DELAY and RETRY_MAX_DELAY must not be negative")
	}

	switch c.Database.Driver {
	case "", "sqlite3", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.Database.Driver)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// UseFileShim returns true if the file shim should be used instead of the real API.
func (c *Config) UseFileShim() bool {
	return c.AWS.FileShim != ""
}

// NewLogger builds a logger writing to stderr with the configured level and
// format. Validate must have passed.
func (c *LogConfig) NewLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(c.Level); err == nil {
		log.SetLevel(level)
	}
	if c.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
