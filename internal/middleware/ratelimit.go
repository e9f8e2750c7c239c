package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// visitor tracks one client's request count inside the current window.
type visitor struct {
	windowStart time.Time
	count       int
}

// RateLimiter is a fixed-window per-client limiter. The API runs two tiers:
// a generous global limit, and a tight one on the read views that fan out to
// the inventory source, where every request spends upstream quota.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	l := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go l.cleanup()
	return l
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	v, ok := l.visitors[key]
	if !ok || now.Sub(v.windowStart) >= l.window {
		l.visitors[key] = &visitor{windowStart: now, count: 1}
		return true
	}
	if v.count >= l.limit {
		return false
	}
	v.count++
	return true
}

func (l *RateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		l.mu.Lock()
		cutoff := l.now().Add(-l.window)
		for k, v := range l.visitors {
			if v.windowStart.Before(cutoff) {
				delete(l.visitors, k)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit limits requests by client IP.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
