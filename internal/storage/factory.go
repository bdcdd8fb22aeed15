package storage

import (
	"context"
	"fmt"
	"leads/internal/models"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Factory provides a centralized way to create storage instances based on configuration.
type Factory struct{}

// NewFactory creates a new storage factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create instantiates a storage provider based on the provided configuration.
// Supported providers:
//   - memory: In-memory storage (for testing/development)
//   - sqlite: SQLite database storage (single node deployments)
//   - postgres: PostgreSQL database storage (production-ready)
//
// Database providers apply their migrations before returning.
func (f *Factory) Create(ctx context.Context, config models.StorageConfig) (Storage, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}

	switch config.Type {
	case models.StorageTypeMemory:
		return NewMemoryStorage(), nil
	case models.StorageTypeSQLite:
		s, err := NewSQLiteStorage(ctx, config.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	case models.StorageTypePostgres:
		s, err := NewPostgresStorage(ctx, config.Database)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// Connect is Create with retries: database providers that fail to come up are
// retried with exponential backoff for up to config.Database.ConnectRetry.
// Configuration errors are returned immediately.
func (f *Factory) Connect(ctx context.Context, config models.StorageConfig) (Storage, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}
	if config.Type == models.StorageTypeMemory || config.Database.ConnectRetry <= 0 {
		return f.Create(ctx, config)
	}

	attempt := 0
	return backoff.Retry(ctx, func() (Storage, error) {
		attempt++
		return f.Create(ctx, config)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(config.Database.ConnectRetry),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Storage not ready, retrying",
				"type", config.Type,
				"attempt", attempt,
				"retry_in", next,
				"error", err,
			)
		}),
	)
}

// GetSupportedProviders returns a list of all supported storage provider types
func (f *Factory) GetSupportedProviders() []string {
	return []string{models.StorageTypeMemory, models.StorageTypeSQLite, models.StorageTypePostgres}
}

// ValidateConfig validates that a storage configuration is valid for its type
func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	switch config.Type {
	case models.StorageTypeMemory:
		// Memory storage requires no additional configuration
	case models.StorageTypePostgres, models.StorageTypeSQLite:
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s storage", config.Type)
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", config.Type)
	}
	return nil
}
