package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) *RateLimiter {
	t.Helper()
	limiter := NewRateLimiter(limit, window)
	t.Cleanup(limiter.Stop)
	return limiter
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		limiter := newTestLimiter(t, 5, time.Minute)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("client1"), "request %d should be allowed", i+1)
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := newTestLimiter(t, 3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client2"))
		}
		assert.False(t, limiter.Allow("client2"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := newTestLimiter(t, 2, time.Minute)

		assert.True(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientA"))
		assert.False(t, limiter.Allow("clientA"))

		assert.True(t, limiter.Allow("clientB"))
		assert.True(t, limiter.Allow("clientB"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		limiter := newTestLimiter(t, 2, time.Minute)
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		assert.True(t, limiter.Allow("client3"))
		assert.True(t, limiter.Allow("client3"))
		assert.False(t, limiter.Allow("client3"))

		now = now.Add(30 * time.Second)
		assert.True(t, limiter.Allow("client3"))
		assert.False(t, limiter.Allow("client3"))

		now = now.Add(time.Minute)
		assert.Equal(t, 2, limiter.Remaining("client3"))
	})

	t.Run("remaining returns correct count", func(t *testing.T) {
		limiter := newTestLimiter(t, 5, time.Minute)
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		assert.Equal(t, 5, limiter.Remaining("newclient"))

		limiter.Allow("newclient")
		limiter.Allow("newclient")

		assert.Equal(t, 3, limiter.Remaining("newclient"))
	})

	t.Run("non-positive arguments fall back to defaults", func(t *testing.T) {
		limiter := newTestLimiter(t, 0, 0)

		assert.True(t, limiter.Allow("client4"))
		assert.False(t, limiter.Allow("client4"))
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := newTestLimiter(t, 100, time.Hour)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("concurrent-client") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		limiter.Stop()
		assert.NotPanics(t, limiter.Stop)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	newRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RateLimit(limiter))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("sets rate limit headers", func(t *testing.T) {
		router := newRouter(newTestLimiter(t, 3, time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("returns 429 when limit exceeded", func(t *testing.T) {
		router := newRouter(newTestLimiter(t, 2, time.Hour))

		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
	})

	t.Run("keys by client address", func(t *testing.T) {
		router := newRouter(newTestLimiter(t, 1, time.Hour))

		send := func(addr string) int {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = addr
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w.Code
		}

		assert.Equal(t, http.StatusOK, send("192.168.1.100:12345"))
		assert.Equal(t, http.StatusTooManyRequests, send("192.168.1.100:54321"))
		assert.Equal(t, http.StatusOK, send("192.168.1.101:12345"))
	})
}

func TestRateLimitByKey(t *testing.T) {
	limiter := newTestLimiter(t, 1, time.Hour)
	router := gin.New()
	router.Use(RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.GetHeader("X-User-ID")
	}))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-User-ID", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("user1"))
	assert.Equal(t, http.StatusTooManyRequests, send("user1"))
	assert.Equal(t, http.StatusOK, send("user2"))
}
