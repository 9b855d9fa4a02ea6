package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedLimiterStore struct {
	allowed bool
	err     error
}

func (s fixedLimiterStore) Allow(context.Context, string) (bool, error) {
	return s.allowed, s.err
}

func doRequest(store LimiterStore) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(store))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestMemoryLimiterStoreExhaustsBurst(t *testing.T) {
	store := NewMemoryLimiterStore(3)

	for i := 0; i < 3; i++ {
		allowed, err := store.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should pass", i)
	}
	allowed, err := store.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other clients keep their own budget.
	allowed, err = store.Allow(context.Background(), "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddlewarePassesAllowed(t *testing.T) {
	w := doRequest(fixedLimiterStore{allowed: true})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRateLimitMiddlewareRejectsThrottled(t *testing.T) {
	w := doRequest(fixedLimiterStore{allowed: false})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	w := doRequest(fixedLimiterStore{err: errors.New("redis down")})
	assert.Equal(t, http.StatusOK, w.Code)
}
