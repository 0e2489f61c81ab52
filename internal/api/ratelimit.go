package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/curbshare/parking-backend/internal/auth"
	"github.com/curbshare/parking-backend/internal/pkg/response"
)

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-process fixed-window limiter.
type MemoryLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		visitors: map[string]*visitor{},
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v := l.visitors[key]
	if v == nil || !now.Before(v.resetAt) {
		l.sweep(now)
		l.visitors[key] = &visitor{count: 1, resetAt: now.Add(l.window)}
		return true, nil
	}
	if v.count >= l.limit {
		return false, nil
	}
	v.count++
	return true, nil
}

// sweep drops expired windows so idle keys do not pile up.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if !now.Before(v.resetAt) {
			delete(l.visitors, k)
		}
	}
}

// RedisLimiter is a fixed-window limiter shared by every instance using the
// same Redis.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, l.window.Milliseconds()).Result()
	if err != nil {
		return false, err
	}

	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		if count, err = strconv.ParseInt(v, 10, 64); err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unexpected redis script result type %T", res)
	}
	return count <= int64(l.limit), nil
}

// RateLimit rejects requests over the limiter's budget with 429. Requests are
// keyed by user when authenticated and by client IP otherwise. Limiter
// errors let the request through.
func RateLimit(l Limiter, scope string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := auth.GetUserID(c); id != "" {
			key = "user:" + id
		}

		ok, err := l.Allow(c.Request.Context(), scope+":"+key)
		if err != nil {
			logger.WarnContext(c.Request.Context(), "rate limiter error", "scope", scope, "err", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.ErrorResponse{Error: "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// NewLimiterFactory returns a constructor for limiters backed by rdb, or by
// process memory when rdb is nil.
func NewLimiterFactory(rdb *redis.Client) func(limit int, window time.Duration) Limiter {
	return func(limit int, window time.Duration) Limiter {
		if rdb == nil {
			return NewMemoryLimiter(limit, window)
		}
		return NewRedisLimiter(rdb, limit, window, "rl")
	}
}
