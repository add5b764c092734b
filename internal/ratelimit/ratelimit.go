// Package ratelimit throttles mutating requests per user. Counting is
// pluggable: a single instance counts in memory, a fleet shares a Redis
// counter. Counter failures fail open so a broken backend never blocks
// writes.
package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propstack/buyer-intake/internal/auth"
	"github.com/propstack/buyer-intake/pkg/logging"
)

// Counter tallies hits for a key inside the current window and returns the
// count including this hit.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, error)
}

// MemoryCounter is a per-process sliding-window counter.
type MemoryCounter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{hits: make(map[string][]time.Time), now: time.Now}
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	cutoff := now.Add(-window)
	kept := c.hits[key][:0]
	for _, t := range c.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	c.hits[key] = kept
	return len(kept), nil
}

// RedisCounter shares a fixed-window counter across instances. The key gets
// its expiry on the first hit of each window.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	n, err := c.client.Incr(ctx, "ratelimit:"+key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := c.client.Expire(ctx, "ratelimit:"+key, window).Err(); err != nil {
			return 0, err
		}
	}
	return int(n), nil
}

// Limiter enforces a per-user request budget over a rolling window.
type Limiter struct {
	counter Counter
	max     int
	window  time.Duration
	logger  *logging.Logger

	// OnLimited runs when a request is rejected, for metrics.
	OnLimited func()
}

func New(counter Counter, max int, window time.Duration, logger *logging.Logger) *Limiter {
	return &Limiter{counter: counter, max: max, window: window, logger: logger}
}

// Allow reports whether the key may proceed. Counter errors allow the
// request and log the failure.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	n, err := l.counter.Incr(ctx, key, l.window)
	if err != nil {
		l.logger.Warn("rate limit counter unavailable, allowing request", "key", key, "error", err)
		return true
	}
	return n <= l.max
}

// Middleware rejects over-budget requests with 429. The budget key is the
// authenticated user; unauthenticated requests fall through untouched since
// the session middleware already gates them.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if !l.Allow(r.Context(), userID) {
			if l.OnLimited != nil {
				l.OnLimited()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter(l.window))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded, please try again later"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfter(window time.Duration) string {
	secs := int(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
