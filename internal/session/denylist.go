package session

import (
	"context"
	"errors"
	"fmt"
	"leads/internal/models"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token signatures until they would have expired
// anyway.
type Denylist interface {
	Revoke(ctx context.Context, signature string, ttl time.Duration) error
	IsRevoked(ctx context.Context, signature string) (bool, error)
	Close() error
}

// NewDenylist builds the denylist selected by cfg. It returns nil when
// revocation is disabled.
func NewDenylist(ctx context.Context, cfg models.RevocationConfig) (Denylist, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case models.RevocationMemory:
		return NewMemoryDenylist(cfg.CleanupInterval), nil
	case models.RevocationRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedisDenylist(client, cfg.Redis.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported revocation type: %s", cfg.Type)
	}
}

// MemoryDenylist is a process-local denylist. Expired entries are dropped on
// lookup and by a periodic sweep.
type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryDenylist creates a denylist that sweeps expired entries every
// cleanupInterval. A non-positive interval disables the sweeper.
func NewMemoryDenylist(cleanupInterval time.Duration) *MemoryDenylist {
	d := &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go d.cleanup(cleanupInterval)
	}
	return d
}

func (d *MemoryDenylist) Revoke(_ context.Context, signature string, ttl time.Duration) error {
	if signature == "" {
		return errors.New("signature cannot be empty")
	}
	d.mu.Lock()
	d.entries[signature] = d.now().Add(ttl)
	d.mu.Unlock()
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, signature string) (bool, error) {
	d.mu.RLock()
	expires, ok := d.entries[signature]
	d.mu.RUnlock()
	return ok && d.now().Before(expires), nil
}

// Len returns the number of entries, including expired ones not yet swept.
func (d *MemoryDenylist) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

func (d *MemoryDenylist) sweep() {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for sig, expires := range d.entries {
		if !now.Before(expires) {
			delete(d.entries, sig)
		}
	}
}

func (d *MemoryDenylist) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.sweep()
		}
	}
}

func (d *MemoryDenylist) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	return nil
}

// RedisDenylist shares revocations between replicas. Entries expire through
// Redis key TTLs.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

func NewRedisDenylist(client *redis.Client, prefix string) *RedisDenylist {
	return &RedisDenylist{client: client, prefix: prefix}
}

func (r *RedisDenylist) key(signature string) string {
	return r.prefix + signature
}

func (r *RedisDenylist) Revoke(ctx context.Context, signature string, ttl time.Duration) error {
	if signature == "" {
		return errors.New("signature cannot be empty")
	}
	if err := r.client.Set(ctx, r.key(signature), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RedisDenylist) IsRevoked(ctx context.Context, signature string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(signature)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

func (r *RedisDenylist) Close() error {
	return r.client.Close()
}
