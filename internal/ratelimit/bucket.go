package ratelimit

import (
	"hash/fnv"
	"leads/internal/models"
	"sync"
	"time"
)

const shardCount = 32

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

// BucketLimiter is a token bucket that refills in whole tokens only.
//
// On each call the bucket gains floor(elapsedMinutes * refillPerMinute)
// tokens, capped at capacity. The refill timestamp moves forward only when at
// least one token was added; partial progress is otherwise kept and any
// fractional remainder is dropped when it does move.
//
// Keys are spread over fixed shards so unrelated callers do not contend on a
// single lock.
//
// MaxKeys is approximate: each shard holds at most ceil(MaxKeys/shardCount)
// buckets. When keys hash unevenly a shard can fill and evict while the total
// is still below MaxKeys, and an evicted key starts again with a full bucket.
type BucketLimiter struct {
	refill    int
	capacity  int
	idleAfter time.Duration
	saturate  time.Duration
	perShard  int // max buckets per shard; 0 means unbounded
	now       func() time.Time

	shards [shardCount]*shard

	done      chan struct{}
	closeOnce sync.Once
}

// NewBucketLimiter creates a truncating limiter. When cfg.CleanupInterval is
// positive a background goroutine sweeps idle buckets.
func NewBucketLimiter(cfg models.RateLimitConfig, opts ...Option) *BucketLimiter {
	o := buildOptions(opts)
	b := &BucketLimiter{
		refill:    cfg.RefillPerMinute,
		capacity:  cfg.Capacity,
		idleAfter: idleCutoff(cfg),
		saturate:  fullRefill(cfg.Capacity, cfg.RefillPerMinute),
		now:       o.now,
		done:      make(chan struct{}),
	}
	if cfg.MaxKeys > 0 {
		b.perShard = (cfg.MaxKeys + shardCount - 1) / shardCount
	}
	for i := range b.shards {
		b.shards[i] = &shard{buckets: make(map[string]*bucket)}
	}
	if cfg.CleanupInterval > 0 {
		go b.cleanup(cfg.CleanupInterval)
	}
	return b
}

func (b *BucketLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return b.shards[h.Sum32()%shardCount]
}

// Allow consumes one token for key if one is available.
func (b *BucketLimiter) Allow(key string) (bool, Info) {
	s := b.shardFor(key)
	now := b.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	bk, ok := s.buckets[key]
	if !ok {
		if b.perShard > 0 && len(s.buckets) >= b.perShard {
			b.makeRoom(s, now)
		}
		bk = &bucket{tokens: b.capacity, lastRefill: now}
		s.buckets[key] = bk
	}
	bk.lastSeen = now

	b.refillBucket(bk, now)

	allowed := bk.tokens > 0
	if allowed {
		bk.tokens--
	}
	return allowed, b.info(bk, now, allowed)
}

func (b *BucketLimiter) refillBucket(bk *bucket, now time.Time) {
	elapsed := now.Sub(bk.lastRefill)
	if elapsed <= 0 || b.refill <= 0 {
		return
	}
	// Past a full refill the bucket is saturated; this also keeps the integer
	// product below from overflowing on long idle periods.
	if elapsed >= b.saturate {
		bk.tokens = b.capacity
		bk.lastRefill = now
		return
	}
	add := int(int64(elapsed) * int64(b.refill) / int64(time.Minute))
	if add < 1 {
		return
	}
	bk.tokens = min(b.capacity, bk.tokens+add)
	bk.lastRefill = now
}

func (b *BucketLimiter) info(bk *bucket, now time.Time, allowed bool) Info {
	info := Info{
		Limit:     b.capacity,
		Remaining: bk.tokens,
		ResetAt:   now,
	}
	if b.refill <= 0 {
		return info
	}
	perToken := time.Minute / time.Duration(b.refill)
	if missing := b.capacity - bk.tokens; missing > 0 {
		info.ResetAt = bk.lastRefill.Add(time.Duration(missing) * perToken)
	}
	if !allowed {
		info.RetryAfter = max(bk.lastRefill.Add(perToken).Sub(now), 0)
	}
	return info
}

// makeRoom frees a slot in a full shard: idle buckets go first, otherwise the
// least recently seen bucket is dropped. Caller holds s.mu.
func (b *BucketLimiter) makeRoom(s *shard, now time.Time) {
	if b.sweepShard(s, now) > 0 {
		return
	}
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, bk := range s.buckets {
		if !found || bk.lastSeen.Before(oldest) {
			oldestKey, oldest, found = k, bk.lastSeen, true
		}
	}
	if found {
		delete(s.buckets, oldestKey)
	}
}

// sweepShard drops buckets idle longer than idleAfter. Caller holds s.mu.
func (b *BucketLimiter) sweepShard(s *shard, now time.Time) int {
	removed := 0
	for k, bk := range s.buckets {
		if now.Sub(bk.lastSeen) >= b.idleAfter {
			delete(s.buckets, k)
			removed++
		}
	}
	return removed
}

func (b *BucketLimiter) sweep() int {
	now := b.now()
	removed := 0
	for _, s := range b.shards {
		s.mu.Lock()
		removed += b.sweepShard(s, now)
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys.
func (b *BucketLimiter) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.Lock()
		n += len(s.buckets)
		s.mu.Unlock()
	}
	return n
}

func (b *BucketLimiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.sweep()
		}
	}
}

// Close stops the background sweeper. It is safe to call more than once.
func (b *BucketLimiter) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
