package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/contextkeys"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 3,
		WindowDuration:    time.Minute,
		BurstSize:         0,
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("key-1"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("key-1"))

	// A different key has its own bucket.
	assert.True(t, rl.Allow("key-2"))
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 2,
		WindowDuration:    time.Minute,
		BurstSize:         3,
	})

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("bursty"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("bursty"))
}

func TestRateLimiterRemaining(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    time.Minute,
	})

	assert.Equal(t, 5, rl.Remaining("fresh"))
	rl.Allow("fresh")
	rl.Allow("fresh")
	assert.Equal(t, 3, rl.Remaining("fresh"))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 5,
		WindowDuration:    10 * time.Millisecond,
	})

	rl.Allow("stale")
	time.Sleep(25 * time.Millisecond)
	rl.Cleanup()

	rl.mu.RLock()
	_, exists := rl.buckets["stale"]
	rl.mu.RUnlock()
	assert.False(t, exists)
}

func TestRateLimitMiddlewareRejectsAfterLimit(t *testing.T) {
	m := &RateLimitMiddleware{
		userLimiter: NewRateLimiter(PerUserRateLimitConfig()),
		anonymousLimiter: NewRateLimiter(&RateLimitConfig{
			RequestsPerWindow: 2,
			WindowDuration:    time.Minute,
		}),
	}
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
	assert.Equal(t, "application/json", last.Header().Get("Content-Type"))
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded","retry_after":60}`, last.Body.String())
}

func TestRateLimitMiddlewareSetsHeaders(t *testing.T) {
	m := NewRateLimitMiddleware()
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/diagrams", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimitMiddlewareKeysAuthenticatedRequestsByActor(t *testing.T) {
	m := NewRateLimitMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/diagrams", nil)
	ctx := contextkeys.WithValue(req.Context(), contextkeys.ActorKey, auth.Actor{ID: "user-7", Kind: auth.ActorUser})
	req = req.WithContext(ctx)

	key, limiter := m.keyFor(req)
	assert.Equal(t, "actor:user-7", key)
	assert.Same(t, m.userLimiter, limiter)

	anon := httptest.NewRequest(http.MethodGet, "/diagrams", nil)
	anon.Header.Set("X-Forwarded-For", "198.51.100.4")
	key, limiter = m.keyFor(anon)
	assert.Equal(t, "ip:198.51.100.4", key)
	assert.Same(t, m.anonymousLimiter, limiter)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:9000"
	assert.Equal(t, "10.0.0.1:9000", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.2")
	assert.Equal(t, "203.0.113.2", clientIP(req))
}

func TestRateLimiterConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 1000,
		WindowDuration:    time.Minute,
	})

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				rl.Allow(fmt.Sprintf("key-%d", n%3))
			}
		}(i)
	}
	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			require.Fail(t, "timed out waiting for goroutines")
		}
	}
}
