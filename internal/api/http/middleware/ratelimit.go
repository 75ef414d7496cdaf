package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per caller key. Buckets are
// pruned after sitting idle for an hour.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(interval),
		burst:    burst,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if e, ok := rl.limiters[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) > time.Hour {
			delete(rl.limiters, k)
		}
	}

	e := &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: now}
	rl.limiters[key] = e
	return e.limiter
}

// Allow reports whether the caller identified by key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

// PerUser limits requests by the authenticated user id (falls back to
// client IP for unauthenticated callers).
func (rl *RateLimiter) PerUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		if !rl.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
