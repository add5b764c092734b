package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propstack/buyer-intake/internal/auth"
	"github.com/propstack/buyer-intake/pkg/logging"
)

func TestMemoryCounterSlidingWindow(t *testing.T) {
	counter := NewMemoryCounter()
	now := time.Now()
	counter.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		n, err := counter.Incr(ctx, "agent-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// Another key counts independently.
	n, err := counter.Incr(ctx, "agent-2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Old hits fall out of the window.
	now = now.Add(61 * time.Second)
	n, err = counter.Incr(ctx, "agent-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRedisCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	counter := NewRedisCounter(client)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		n, err := counter.Incr(ctx, "agent-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// The window key expires, resetting the count.
	mr.FastForward(61 * time.Second)
	n, err := counter.Incr(ctx, "agent-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type failingCounter struct{}

func (failingCounter) Incr(context.Context, string, time.Duration) (int, error) {
	return 0, errors.New("backend down")
}

func TestLimiterFailsOpen(t *testing.T) {
	limiter := New(failingCounter{}, 1, time.Minute, logging.Default())
	assert.True(t, limiter.Allow(context.Background(), "agent-1"))
}

func TestMiddleware(t *testing.T) {
	limiter := New(NewMemoryCounter(), 2, time.Minute, logging.Default())
	limited := 0
	limiter.OnLimited = func() { limited++ }

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := limiter.Middleware(next)

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/buyers", nil)
		if user != "" {
			req = req.WithContext(auth.WithUserID(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("agent-1").Code)
	assert.Equal(t, http.StatusOK, do("agent-1").Code)

	rec := do("agent-1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, limited)

	// Other users keep their own budget.
	assert.Equal(t, http.StatusOK, do("agent-2").Code)

	// No user on the context means the session gate already applies.
	assert.Equal(t, http.StatusOK, do("").Code)
}
