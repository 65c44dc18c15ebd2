package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/database"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/apierr"
	"github.com/otter-sec/solana-verified-programs-api-sub000/internal/pkg/response"
)

// PerIPConfig configures the Redis-backed per-client-IP rate limiter used
// on every route group; the three tiers in spec.md §4.H differ only in
// these numbers.
type PerIPConfig struct {
	Limit  int
	Window time.Duration
}

// PerIP returns a rate limiting middleware backed by Redis, so the per-IP
// ceiling holds across every instance of the service, not just the process
// handling a given request.
func PerIP(redis *database.Redis, cfg PerIPConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("ratelimit:ip:%s", realIP(r))

			count, err := redis.IncrWithExpire(r.Context(), key, cfg.Window)
			if err != nil {
				// Cache is down: fail open per the CacheError policy — never
				// fail a request because the rate-limit store is unreachable.
				next.ServeHTTP(w, r)
				return
			}

			remaining := cfg.Limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > cfg.Limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
				response.Error(w, apierr.NewValidationError("rate limit exceeded").WithMessage("rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Global returns a process-wide token-bucket limiter with a bounded wait
// queue. Requests beyond the queue depth are rejected immediately with a 400
// validation-error response instead of piling up, matching the "queue 1024" ceiling spec.md puts on
// the write-route group.
func Global(limiter *rate.Limiter, queueDepth int) func(next http.Handler) http.Handler {
	queue := make(chan struct{}, queueDepth)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case queue <- struct{}{}:
			default:
				response.Error(w, apierr.NewValidationError("server busy").WithMessage("server busy, retry later"))
				return
			}
			defer func() { <-queue }()

			if err := limiter.Wait(r.Context()); err != nil {
				response.Error(w, apierr.NewValidationError("request cancelled"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// realIP extracts the client IP, considering common proxy headers.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	return r.RemoteAddr
}
