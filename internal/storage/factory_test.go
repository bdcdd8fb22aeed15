package storage

import (
	"context"
	"leads/internal/models"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory(t *testing.T) {
	factory := NewFactory()

	t.Run("GetSupportedProviders", func(t *testing.T) {
		assert.Equal(t, []string{"memory", "sqlite", "postgres"}, factory.GetSupportedProviders())
	})

	t.Run("ValidateConfig", func(t *testing.T) {
		tests := []struct {
			name      string
			config    models.StorageConfig
			expectErr bool
		}{
			{name: "valid memory config", config: models.StorageConfig{Type: "memory"}},
			{name: "valid sqlite config", config: models.StorageConfig{Type: "sqlite", Database: models.DatabaseConfig{DSN: "leads.db"}}},
			{name: "valid postgres config", config: models.StorageConfig{Type: "postgres", Database: models.DatabaseConfig{DSN: "postgres://localhost/leads"}}},
			{name: "invalid storage type", config: models.StorageConfig{Type: "invalid"}, expectErr: true},
			{name: "sqlite without DSN", config: models.StorageConfig{Type: "sqlite"}, expectErr: true},
			{name: "postgres without DSN", config: models.StorageConfig{Type: "postgres"}, expectErr: true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := factory.ValidateConfig(tt.config)
				if tt.expectErr {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			})
		}
	})

	t.Run("Create memory storage", func(t *testing.T) {
		s, err := factory.Create(context.Background(), models.StorageConfig{Type: "memory"})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &MemoryStorage{}, s)
	})

	t.Run("Create sqlite storage", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "factory.db")
		s, err := factory.Create(context.Background(), models.StorageConfig{
			Type:     "sqlite",
			Database: models.DatabaseConfig{DSN: dsn},
		})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &SQLiteStorage{}, s)
		assert.NoError(t, s.Ping(context.Background()))
	})

	t.Run("Create with invalid config", func(t *testing.T) {
		_, err := factory.Create(context.Background(), models.StorageConfig{Type: "json"})
		assert.Error(t, err)
	})
}

func TestFactory_Connect(t *testing.T) {
	factory := NewFactory()
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := factory.Connect(ctx, models.StorageConfig{Type: models.StorageTypeMemory})
		require.NoError(t, err)
		assert.IsType(t, &MemoryStorage{}, s)
	})

	t.Run("sqlite first try", func(t *testing.T) {
		s, err := factory.Connect(ctx, models.StorageConfig{
			Type:     models.StorageTypeSQLite,
			Database: models.DatabaseConfig{DSN: filepath.Join(t.TempDir(), "connect.db"), ConnectRetry: time.Second},
		})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("invalid config is not retried", func(t *testing.T) {
		start := time.Now()
		_, err := factory.Connect(ctx, models.StorageConfig{
			Type:     models.StorageTypeSQLite,
			Database: models.DatabaseConfig{ConnectRetry: time.Minute},
		})
		require.Error(t, err)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("gives up after the retry window", func(t *testing.T) {
		start := time.Now()
		_, err := factory.Connect(ctx, models.StorageConfig{
			Type: models.StorageTypeSQLite,
			Database: models.DatabaseConfig{
				DSN:          filepath.Join(t.TempDir(), "missing", "dir", "leads.db"),
				ConnectRetry: 300 * time.Millisecond,
			},
		})
		require.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("canceled context stops retries", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := factory.Connect(cctx, models.StorageConfig{
			Type: models.StorageTypeSQLite,
			Database: models.DatabaseConfig{
				DSN:          filepath.Join(t.TempDir(), "missing", "leads.db"),
				ConnectRetry: time.Minute,
			},
		})
		require.Error(t, err)
	})
}
