// Package models - Service configuration and operational settings.
// This file defines the configuration structures for all service components.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, storage, security, etc.)
// - Defaults that work out of the box for local development
// - Validation catches misconfigurations, including insecure secrets, at startup
package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
	StorageTypeSQLite   = "sqlite"
)

// Rate limit algorithm constants
const (
	// RateLimitTruncating refills whole tokens only and discards fractional
	// elapsed time whenever a refill happens.
	RateLimitTruncating = "truncating"
	// RateLimitContinuous carries fractional refill forward between calls.
	RateLimitContinuous = "continuous"
)

// Revocation backend constants
const (
	RevocationMemory = "memory"
	RevocationRedis  = "redis"
)

// EnvironmentDevelopment is the only environment allowed to run with the
// placeholder session secret.
const EnvironmentDevelopment = "development"

// DefaultSessionSecret is the placeholder signing secret. It is accepted only
// in the development environment.
const DefaultSessionSecret = "demo-secret"

// ErrInsecureConfiguration is returned by Validate when a placeholder signing
// secret is configured outside development.
var ErrInsecureConfiguration = errors.New("insecure configuration")

// Config is the root configuration structure containing all service settings.
type Config struct {
	Environment   string              `yaml:"environment" json:"environment"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Storage       StorageConfig       `yaml:"storage" json:"storage"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Buyers        BuyersConfig        `yaml:"buyers" json:"buyers"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" json:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	// ConnectRetry bounds how long startup keeps retrying an unreachable
	// database. Zero tries once.
	ConnectRetry    time.Duration `yaml:"connect_retry" json:"connect_retry"`
}

type SecurityConfig struct {
	Session   SessionConfig   `yaml:"session" json:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// SessionConfig controls minting and transport of session tokens.
type SessionConfig struct {
	Secret       string           `yaml:"secret" json:"-"`
	CookieName   string           `yaml:"cookie_name" json:"cookie_name"`
	CookieMaxAge time.Duration    `yaml:"cookie_max_age" json:"cookie_max_age"`
	CookieSecure bool             `yaml:"cookie_secure" json:"cookie_secure"`
	Revocation   RevocationConfig `yaml:"revocation" json:"revocation"`
}

type RevocationConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Type            string        `yaml:"type" json:"type"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	Redis           RedisConfig   `yaml:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// RateLimitConfig guards the buyer write endpoint.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	Algorithm       string        `yaml:"algorithm" json:"algorithm"`
	RefillPerMinute int           `yaml:"refill_per_minute" json:"refill_per_minute"`
	Capacity        int           `yaml:"capacity" json:"capacity"`
	IdleTTL         time.Duration `yaml:"idle_ttl" json:"idle_ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	MaxKeys         int           `yaml:"max_keys" json:"max_keys"`
}

type BuyersConfig struct {
	PageSize int `yaml:"page_size" json:"page_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	SentryDSN   string        `yaml:"sentry_dsn" json:"-"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration suitable for local development.
//
// Default Values Rationale:
// - Memory storage: no external dependencies
// - Rate limit of 5 tokens/minute with a burst of 10 on the write endpoint
// - 7 day session cookie
// - Placeholder session secret, rejected outside development
func NewDefaultConfig() *Config {
	return &Config{
		Environment: EnvironmentDevelopment,
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Database: DatabaseConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
				ConnectRetry:    30 * time.Second,
			},
		},
		Security: SecurityConfig{
			Session: SessionConfig{
				Secret:       DefaultSessionSecret,
				CookieName:   "demo_auth",
				CookieMaxAge: 7 * 24 * time.Hour,
				Revocation: RevocationConfig{
					Enabled:         true,
					Type:            RevocationMemory,
					CleanupInterval: 10 * time.Minute,
					Redis: RedisConfig{
						Prefix: "leads:revoked:",
					},
				},
			},
			RateLimit: RateLimitConfig{
				Enabled:         true,
				Algorithm:       RateLimitTruncating,
				RefillPerMinute: 5,
				Capacity:        10,
				IdleTTL:         30 * time.Minute,
				CleanupInterval: 5 * time.Minute,
				MaxKeys:         100000,
			},
		},
		Buyers: BuyersConfig{
			PageSize: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "leads",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == EnvironmentDevelopment
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("invalid storage config: %w", err)
	}

	if err := c.Security.Validate(c.IsDevelopment()); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if c.Buyers.PageSize <= 0 {
		return errors.New("invalid buyers config: page size must be positive")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (stc *StorageConfig) Validate() error {
	validTypes := []string{StorageTypeMemory, StorageTypePostgres, StorageTypeSQLite}
	if !slices.Contains(validTypes, stc.Type) {
		return fmt.Errorf("invalid storage type: %s", stc.Type)
	}

	if stc.Type != StorageTypeMemory && stc.Database.DSN == "" {
		return errors.New("database DSN is required for database storage")
	}

	return nil
}

// Validate checks the security settings. A missing or placeholder session
// secret is only tolerated when dev is true.
func (sec *SecurityConfig) Validate(dev bool) error {
	s := sec.Session
	if s.Secret == "" || s.Secret == DefaultSessionSecret {
		if !dev {
			return fmt.Errorf("%w: session secret must be set to a non-default value", ErrInsecureConfiguration)
		}
		if s.Secret == "" {
			return errors.New("session secret cannot be empty")
		}
	}
	if s.CookieName == "" {
		return errors.New("session cookie name cannot be empty")
	}
	if s.CookieMaxAge <= 0 {
		return errors.New("session cookie max age must be positive")
	}

	if s.Revocation.Enabled {
		switch s.Revocation.Type {
		case RevocationMemory:
		case RevocationRedis:
			if s.Revocation.Redis.Addr == "" {
				return errors.New("redis address is required for redis revocation")
			}
		default:
			return fmt.Errorf("invalid revocation type: %s", s.Revocation.Type)
		}
	}

	rl := sec.RateLimit
	if rl.Enabled {
		if rl.Algorithm != RateLimitTruncating && rl.Algorithm != RateLimitContinuous {
			return fmt.Errorf("invalid rate limit algorithm: %s", rl.Algorithm)
		}
		if rl.RefillPerMinute <= 0 {
			return errors.New("refill per minute must be positive")
		}
		if rl.Capacity <= 0 {
			return errors.New("capacity must be positive")
		}
		if rl.IdleTTL < 0 || rl.CleanupInterval < 0 {
			return errors.New("rate limit durations cannot be negative")
		}
		if rl.MaxKeys < 0 {
			return errors.New("max keys cannot be negative")
		}
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, lc.Level) {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	if !slices.Contains([]string{"json", "text"}, lc.Format) {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	if !slices.Contains([]string{"stdout", "stderr", "file"}, lc.Output) {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}
