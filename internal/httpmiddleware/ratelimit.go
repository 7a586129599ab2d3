package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// IPRateLimiter is an in-memory per-client token bucket. Good enough
// for a single API process; a multi-node deployment would move the
// buckets to Redis.
type IPRateLimiter struct {
	capacity int
	perMin   int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewIPRateLimiter creates a limiter allowing perMinute requests per
// client IP, with bursts up to capacity.
func NewIPRateLimiter(capacity, perMinute int) *IPRateLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	return &IPRateLimiter{
		capacity: capacity,
		perMin:   perMinute,
		buckets:  make(map[string]*bucket),
	}
}

// GinMiddleware returns a handler that rejects over-limit clients with
// 429.
func (l *IPRateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (l *IPRateLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &bucket{tokens: float64(l.capacity) - 1, last: now}
		return true
	}

	refill := now.Sub(b.last).Minutes() * float64(l.perMin)
	b.tokens += refill
	if b.tokens > float64(l.capacity) {
		b.tokens = float64(l.capacity)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
