package session

import (
	"context"
	"leads/internal/models"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewMemoryDenylist(0)
	d.now = func() time.Time { return now }
	defer d.Close()

	revoked, err := d.IsRevoked(ctx, "sig")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "sig", time.Hour))
	revoked, err = d.IsRevoked(ctx, "sig")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(time.Hour)
	revoked, err = d.IsRevoked(ctx, "sig")
	require.NoError(t, err)
	assert.False(t, revoked, "entry expires with its ttl")

	assert.Equal(t, 1, d.Len())
	d.sweep()
	assert.Equal(t, 0, d.Len())

	assert.Error(t, d.Revoke(ctx, "", time.Hour))
}

func TestMemoryDenylist_CloseIsIdempotent(t *testing.T) {
	d := NewMemoryDenylist(time.Millisecond)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}

func TestNewDenylist(t *testing.T) {
	ctx := context.Background()

	d, err := NewDenylist(ctx, models.RevocationConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = NewDenylist(ctx, models.RevocationConfig{Enabled: true, Type: models.RevocationMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryDenylist{}, d)
	require.NoError(t, d.Close())

	_, err = NewDenylist(ctx, models.RevocationConfig{Enabled: true, Type: "etcd"})
	assert.Error(t, err)
}

func TestRedisDenylist(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()

	prefix := "leads-test:" + uuid.NewString() + ":"
	d, err := NewDenylist(ctx, models.RevocationConfig{
		Enabled: true,
		Type:    models.RevocationRedis,
		Redis:   models.RedisConfig{Addr: addr, Prefix: prefix},
	})
	require.NoError(t, err)
	defer d.Close()

	revoked, err := d.IsRevoked(ctx, "sig")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "sig", time.Minute))
	revoked, err = d.IsRevoked(ctx, "sig")
	require.NoError(t, err)
	assert.True(t, revoked)

	rd := d.(*RedisDenylist)
	ttl, err := rd.client.TTL(ctx, prefix+"sig").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestNewDenylist_RedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewDenylist(ctx, models.RevocationConfig{
		Enabled: true,
		Type:    models.RevocationRedis,
		Redis:   models.RedisConfig{Addr: "127.0.0.1:1"},
	})
	assert.Error(t, err)
}

func TestRedisDenylist_ClosedClient(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	d := NewRedisDenylist(client, "p:")
	require.NoError(t, d.Close())

	_, err := d.IsRevoked(context.Background(), "sig")
	assert.Error(t, err)
}
