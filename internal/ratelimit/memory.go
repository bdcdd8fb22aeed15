package ratelimit

import (
	"leads/internal/models"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry holds a rate limiter and its last access time for cleanup.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is an in-memory rate limiter backed by golang.org/x/time/rate.
// Unlike BucketLimiter it accumulates fractional tokens continuously, so a
// caller polling faster than the refill period still earns tokens over time.
type MemoryLimiter struct {
	rate      rate.Limit
	burst     int
	idleAfter time.Duration
	maxKeys   int
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	done    chan struct{}
	closed  bool
}

// NewMemoryLimiter creates a continuous limiter refilling cfg.RefillPerMinute
// tokens per minute up to cfg.Capacity. A background goroutine evicts idle
// keys every cfg.CleanupInterval when that interval is positive.
func NewMemoryLimiter(cfg models.RateLimitConfig, opts ...Option) *MemoryLimiter {
	o := buildOptions(opts)
	m := &MemoryLimiter{
		rate:      rate.Limit(float64(cfg.RefillPerMinute) / 60),
		burst:     cfg.Capacity,
		idleAfter: idleCutoff(cfg),
		maxKeys:   cfg.MaxKeys,
		now:       o.now,
		entries:   make(map[string]*entry),
		done:      make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go m.cleanup(cfg.CleanupInterval)
	}
	return m
}

// Allow checks whether a request from the given key should be allowed.
func (m *MemoryLimiter) Allow(key string) (bool, Info) {
	now := m.now()

	m.mu.Lock()
	e, exists := m.entries[key]
	if !exists {
		if m.maxKeys > 0 && len(m.entries) >= m.maxKeys {
			m.makeRoom(now)
		}
		e = &entry{limiter: rate.NewLimiter(m.rate, m.burst)}
		// Start full at the injected time rather than the wall clock.
		e.limiter.SetBurstAt(now, m.burst)
		m.entries[key] = e
	}
	e.lastSeen = now
	m.mu.Unlock()

	allowed := e.limiter.AllowN(now, 1)

	tokens := e.limiter.TokensAt(now)
	info := Info{
		Limit:     m.burst,
		Remaining: int(math.Max(0, math.Floor(tokens))),
		ResetAt:   now,
	}
	if m.rate > 0 {
		if needed := float64(m.burst) - tokens; needed > 0 {
			info.ResetAt = now.Add(time.Duration(needed / float64(m.rate) * float64(time.Second)))
		}
		if !allowed {
			info.RetryAfter = time.Duration((1 - tokens) / float64(m.rate) * float64(time.Second))
		}
	}

	return allowed, info
}

// makeRoom evicts idle entries, or the least recently seen one. Caller holds m.mu.
func (m *MemoryLimiter) makeRoom(now time.Time) {
	if m.evictStale(now) > 0 {
		return
	}
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.lastSeen.Before(oldest) {
			oldestKey, oldest, found = k, e.lastSeen, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

// Close stops the background cleanup goroutine.
func (m *MemoryLimiter) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.evictStale(m.now())
			m.mu.Unlock()
		}
	}
}

// evictStale removes entries idle for longer than idleAfter. Caller holds m.mu.
func (m *MemoryLimiter) evictStale(now time.Time) int {
	removed := 0
	for key, e := range m.entries {
		if now.Sub(e.lastSeen) >= m.idleAfter {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}
