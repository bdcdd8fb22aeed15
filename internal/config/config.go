package config

import (
	"errors"
	"fmt"
	"io/fs"
	"leads/internal/models"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the service reads.
const EnvPrefix = "LEADS_"

// LegacySecretEnv is the secret variable used by earlier deployments. It is
// honoured when LEADS_SESSION_SECRET is unset.
const LegacySecretEnv = "DEMO_AUTH_SECRET"

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	config := models.NewDefaultConfig()

	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	loadFromEnvironment(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables that are already set are left untouched. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No .env file found", "path", path)
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	slog.Debug("Loaded .env file", "path", path)
	return nil
}

// fileSecrets mirrors the secret-bearing keys so we can warn when they are
// committed to a config file instead of supplied through the environment.
type fileSecrets struct {
	Security struct {
		Session struct {
			Secret string `yaml:"secret"`
		} `yaml:"session"`
	} `yaml:"security"`
}

func warnSecretsInFile(data []byte) {
	var fsec fileSecrets
	if err := yaml.Unmarshal(data, &fsec); err != nil {
		return
	}
	if fsec.Security.Session.Secret != "" {
		slog.Warn("Session secret found in config file; prefer the environment.",
			"config_key", "security.session.secret", "env", EnvPrefix+"SESSION_SECRET")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnSecretsInFile(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func lookup(name string) (string, bool) {
	v := os.Getenv(EnvPrefix + name)
	return v, v != ""
}

func setString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(name string, dst *int) {
	if v, ok := lookup(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		} else {
			slog.Warn("Ignoring non-integer environment value", "env", EnvPrefix+name, "value", v)
		}
	}
}

func setBool(name string, dst *bool) {
	if v, ok := lookup(name); ok {
		*dst = strings.ToLower(v) == "true"
	}
}

func setDuration(name string, dst *time.Duration) {
	if v, ok := lookup(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		} else {
			slog.Warn("Ignoring invalid duration environment value", "env", EnvPrefix+name, "value", v)
		}
	}
}

// setSeconds accepts either a Go duration ("168h") or a bare number of seconds.
func setSeconds(name string, dst *time.Duration) {
	if v, ok := lookup(name); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
			return
		}
		setDuration(name, dst)
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	setString("ENVIRONMENT", &config.Environment)

	// Server configuration
	setInt("PORT", &config.Server.Port)
	setString("HOST", &config.Server.Host)
	setDuration("READ_TIMEOUT", &config.Server.ReadTimeout)
	setDuration("WRITE_TIMEOUT", &config.Server.WriteTimeout)
	setDuration("IDLE_TIMEOUT", &config.Server.IdleTimeout)
	setBool("TLS_ENABLED", &config.Server.TLSEnabled)
	setString("TLS_CERT_FILE", &config.Server.TLSCertFile)
	setString("TLS_KEY_FILE", &config.Server.TLSKeyFile)

	// Storage configuration
	setString("STORAGE_TYPE", &config.Storage.Type)
	setString("DATABASE_DSN", &config.Storage.Database.DSN)
	setInt("DATABASE_MAX_OPEN_CONNS", &config.Storage.Database.MaxOpenConns)
	setInt("DATABASE_MAX_IDLE_CONNS", &config.Storage.Database.MaxIdleConns)
	setDuration("DATABASE_CONN_MAX_LIFETIME", &config.Storage.Database.ConnMaxLifetime)
	setDuration("DATABASE_CONNECT_RETRY", &config.Storage.Database.ConnectRetry)

	// Session configuration
	if legacy := os.Getenv(LegacySecretEnv); legacy != "" {
		config.Security.Session.Secret = legacy
	}
	setString("SESSION_SECRET", &config.Security.Session.Secret)
	setString("SESSION_COOKIE_NAME", &config.Security.Session.CookieName)
	setSeconds("SESSION_COOKIE_MAX_AGE", &config.Security.Session.CookieMaxAge)
	setBool("SESSION_COOKIE_SECURE", &config.Security.Session.CookieSecure)
	setBool("REVOCATION_ENABLED", &config.Security.Session.Revocation.Enabled)
	setString("REVOCATION_TYPE", &config.Security.Session.Revocation.Type)
	setString("REDIS_ADDR", &config.Security.Session.Revocation.Redis.Addr)
	setString("REDIS_PASSWORD", &config.Security.Session.Revocation.Redis.Password)
	setInt("REDIS_DB", &config.Security.Session.Revocation.Redis.DB)

	// Rate limit configuration
	setBool("RATE_LIMIT_ENABLED", &config.Security.RateLimit.Enabled)
	setString("RATE_LIMIT_ALGORITHM", &config.Security.RateLimit.Algorithm)
	setInt("RATE_LIMIT_REFILL_PER_MINUTE", &config.Security.RateLimit.RefillPerMinute)
	setInt("RATE_LIMIT_CAPACITY", &config.Security.RateLimit.Capacity)
	setDuration("RATE_LIMIT_IDLE_TTL", &config.Security.RateLimit.IdleTTL)
	setInt("RATE_LIMIT_MAX_KEYS", &config.Security.RateLimit.MaxKeys)

	setInt("PAGE_SIZE", &config.Buyers.PageSize)

	// Logging configuration
	setString("LOG_LEVEL", &config.Logging.Level)
	setString("LOG_FORMAT", &config.Logging.Format)
	setString("LOG_OUTPUT", &config.Logging.Output)
	setString("LOG_FILE_PATH", &config.Logging.FilePath)

	// Metrics configuration
	setBool("METRICS_ENABLED", &config.Metrics.Enabled)
	setString("METRICS_PATH", &config.Metrics.Path)
	setInt("METRICS_PORT", &config.Metrics.Port)

	// Observability configuration
	setString("SERVICE_NAME", &config.Observability.ServiceName)
	setString("SENTRY_DSN", &config.Observability.SentryDSN)
	setBool("TRACING_ENABLED", &config.Observability.Tracing.Enabled)
	setString("TRACING_EXPORTER", &config.Observability.Tracing.Exporter)
	setString("OTLP_ENDPOINT", &config.Observability.Tracing.OTLPEndpoint)
	if rate, ok := lookup("TRACING_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Observability.Tracing.SampleRate = f
		}
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()
	config.Environment = "production"
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Database.DSN = "./data/leads.db"
	config.Security.Session.CookieSecure = true
	// Supplied through LEADS_SESSION_SECRET at runtime.
	config.Security.Session.Secret = ""

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
