package ratelimit

import (
	"context"
	"encoding/json"
	"leads/internal/models"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	resultAllowed = metric.WithAttributes(attribute.String("result", "allowed"))
	resultDenied  = metric.WithAttributes(attribute.String("result", "denied"))
)

// Middleware returns HTTP middleware that enforces limiter per client key.
// Every response carries X-RateLimit-Limit and X-RateLimit-Remaining; denied
// requests get 429 with Retry-After and never reach next.
func Middleware(limiter Limiter) func(http.Handler) http.Handler {
	decisions, err := otel.Meter("leads/ratelimit").Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Rate limit decisions by result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		slog.Warn("Failed to create rate limit counter", "error", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)

			allowed, info := limiter.Allow(key)
			record(r.Context(), decisions, allowed)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !allowed {
				retryAfterSecs := int(info.RetryAfter.Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Too many requests", models.ErrorCodeRateLimitExceeded)
				if err := json.NewEncoder(w).Encode(errorResp); err != nil {
					slog.Error("Failed to encode rate limit response", "error", err)
				}

				slog.Warn("Rate limit exceeded",
					"key", key,
					"limit", info.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func record(ctx context.Context, counter metric.Int64Counter, allowed bool) {
	if counter == nil {
		return
	}
	if allowed {
		counter.Add(ctx, 1, resultAllowed)
	} else {
		counter.Add(ctx, 1, resultDenied)
	}
}

// ClientKey returns the first X-Forwarded-For entry, trimmed, or UnknownKey
// when the header is missing or its first entry is blank.
func ClientKey(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	first, _, _ := strings.Cut(xff, ",")
	if first = strings.TrimSpace(first); first != "" {
		return first
	}
	return UnknownKey
}
