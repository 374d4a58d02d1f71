package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDistributedRateLimiterAllow(t *testing.T) {
	_, client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i)
	}

	allowed, err := rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = rl.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiterRemaining(t *testing.T) {
	_, client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()

	remaining, err := rl.Remaining(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = rl.Allow(ctx, "fresh")
	require.NoError(t, err)
	_, err = rl.Allow(ctx, "fresh")
	require.NoError(t, err)

	remaining, err = rl.Remaining(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestDistributedRateLimiterWindowExpiry(t *testing.T) {
	mr, client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Second,
	}, "test")

	ctx := context.Background()
	allowed, err := rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Second)

	allowed, err = rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedRateLimiterReset(t *testing.T) {
	_, client := newTestRedis(t)
	rl := NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 1,
		WindowDuration:    time.Minute,
	}, "test")

	ctx := context.Background()
	_, err := rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	allowed, err := rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, rl.Reset(ctx, "user-1"))

	allowed, err = rl.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestDistributedMiddlewareRejectsAfterLimit(t *testing.T) {
	_, client := newTestRedis(t)
	m := NewDistributedRateLimitMiddleware(client)
	m.anonymousLimiter = NewDistributedRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
	}, "ratelimit:anon")

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/diagrams", nil)
		req.RemoteAddr = "203.0.113.9:4123"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.Contains(t, last.Body.String(), "rate limit exceeded")
}

func TestDistributedMiddlewareFailsOpenWhenRedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	m := NewDistributedRateLimitMiddleware(client)
	mr.Close()

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/diagrams", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	m.SetFallbackEnabled(false)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDistributedMiddlewareHealthCheck(t *testing.T) {
	mr, client := newTestRedis(t)
	m := NewDistributedRateLimitMiddleware(client)

	require.NoError(t, m.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, m.HealthCheck(context.Background()))
}
