package storage

import (
	"context"
	"leads/internal/models"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStorage(context.Background(), models.DatabaseConfig{DSN: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage(t *testing.T) {
	runStorageContract(t, func(t *testing.T) Storage {
		return newSQLiteTestStorage(t)
	})
}

func TestSQLiteStorage_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStorage(ctx, models.DatabaseConfig{DSN: ":memory:"})
	require.NoError(t, err)
	defer s.Close()

	u, err := s.FindOrCreateUserByEmail(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)

	got, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestSQLiteStorage_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	first, err := NewSQLiteStorage(ctx, models.DatabaseConfig{DSN: dbPath})
	require.NoError(t, err)
	u, err := first.FindOrCreateUserByEmail(ctx, "alice@example.com", "Alice")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(ctx, models.DatabaseConfig{DSN: dbPath})
	require.NoError(t, err)
	defer second.Close()

	got, err := second.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID, "data survives reopening")
}

func TestSQLiteStorage_BuyerRequiresOwner(t *testing.T) {
	s := newSQLiteTestStorage(t)
	ctx := context.Background()

	b := testBuyer("no-such-user", "Orphan", baseTime)
	err := s.CreateBuyer(ctx, b, testHistory(b, "no-such-user", baseTime))
	require.Error(t, err)

	_, err = s.GetBuyer(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStorage_HistoryFailureRollsBackBuyer(t *testing.T) {
	s := newSQLiteTestStorage(t)
	ctx := context.Background()

	owner, err := s.FindOrCreateUserByEmail(ctx, "owner@example.com", "Owner")
	require.NoError(t, err)

	first := testBuyer(owner.ID, "First", baseTime)
	h := testHistory(first, owner.ID, baseTime)
	require.NoError(t, s.CreateBuyer(ctx, first, h))

	second := testBuyer(owner.ID, "Second", baseTime)
	dup := testHistory(second, owner.ID, baseTime)
	dup.ID = h.ID
	require.Error(t, s.CreateBuyer(ctx, second, dup))

	_, err = s.GetBuyer(ctx, second.ID)
	assert.ErrorIs(t, err, ErrNotFound, "buyer insert is rolled back with its history")
}

func TestSQLiteStorage_EmptyDSN(t *testing.T) {
	_, err := NewSQLiteStorage(context.Background(), models.DatabaseConfig{})
	assert.Error(t, err)
}
