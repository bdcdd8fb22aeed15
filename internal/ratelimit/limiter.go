// Package ratelimit provides per-key token bucket rate limiting for write
// endpoints, plus HTTP middleware that keys callers by their forwarded client
// address and sets standard rate limit response headers.
package ratelimit

import (
	"fmt"
	"leads/internal/models"
	"time"
)

// UnknownKey is the bucket key used when a request carries no client address.
// All such callers share one bucket.
const UnknownKey = "unknown"

// Limiter defines the rate limiting contract. Implementations must be safe for
// concurrent use.
type Limiter interface {
	// Allow checks whether a request identified by key should be allowed.
	// Returns whether the request is allowed and rate information for
	// populating response headers.
	Allow(key string) (allowed bool, info Info)

	// Close stops background goroutines and releases resources.
	Close()
}

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Bucket capacity
	Remaining  int           // Whole tokens left after this decision
	ResetAt    time.Time     // When the bucket will be full again
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}

// Option customizes a limiter.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now. Tests use it to drive refills deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the limiter selected by cfg.Algorithm.
func New(cfg models.RateLimitConfig, opts ...Option) (Limiter, error) {
	switch cfg.Algorithm {
	case models.RateLimitTruncating, "":
		return NewBucketLimiter(cfg, opts...), nil
	case models.RateLimitContinuous:
		return NewMemoryLimiter(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit algorithm: %s", cfg.Algorithm)
	}
}

// fullRefill is how long an empty bucket takes to refill to capacity.
func fullRefill(capacity, refillPerMinute int) time.Duration {
	if refillPerMinute <= 0 {
		return 0
	}
	minutes := (capacity + refillPerMinute - 1) / refillPerMinute
	return time.Duration(minutes) * time.Minute
}

// idleCutoff returns the idle duration after which a bucket can be dropped.
// Never shorter than a full refill, so a dropped bucket would have been full
// anyway.
func idleCutoff(cfg models.RateLimitConfig) time.Duration {
	return max(cfg.IdleTTL, fullRefill(cfg.Capacity, cfg.RefillPerMinute))
}
