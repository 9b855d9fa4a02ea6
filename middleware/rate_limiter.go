package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LimiterStore decides whether a request identified by key may proceed. The
// store is injected rather than held in process-wide mutable state, so
// deployments can choose between an in-process limiter and a shared Redis
// counter.
type LimiterStore interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiterStore keeps one token-bucket limiter per key in process memory.
type MemoryLimiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
}

func NewMemoryLimiterStore(perMinute int) *MemoryLimiterStore {
	return &MemoryLimiterStore{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: perMinute,
	}
}

func (s *MemoryLimiterStore) Allow(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	limiter, exists := s.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMinute)), s.perMinute)
		s.limiters[key] = limiter
	}
	s.mu.Unlock()
	return limiter.Allow(), nil
}

// RedisLimiterStore counts requests per key in a fixed one-minute window
// shared across instances.
type RedisLimiterStore struct {
	Client    *redis.Client
	PerMinute int
}

func NewRedisLimiterStore(client *redis.Client, perMinute int) *RedisLimiterStore {
	return &RedisLimiterStore{Client: client, PerMinute: perMinute}
}

func (s *RedisLimiterStore) Allow(ctx context.Context, key string) (bool, error) {
	pipe := s.Client.TxPipeline()
	count := pipe.Incr(ctx, "ratelimit:"+key)
	pipe.Expire(ctx, "ratelimit:"+key, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return count.Val() <= int64(s.PerMinute), nil
}

// RateLimitMiddleware limits requests per client IP using the injected store.
// A store failure fails open: throttling is protection, not a dependency.
func RateLimitMiddleware(store LimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()
		ip := c.ClientIP()
		allowed, err := store.Allow(c.Request.Context(), ip)
		if err != nil {
			logger.Warn("Rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			logger.Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
