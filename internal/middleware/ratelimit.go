package middleware

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RemoteLimiter is a limiter shared by every relay instance, e.g. the Redis token bucket.
type RemoteLimiter interface {
	AllowAction(ctx context.Context, key string, rate int, burst int) (bool, error)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP. It prefers the remote limiter and
// falls back to in-process token buckets when the remote one errors or is absent.
type RateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rps      int
	burst    int
	remote   RemoteLimiter
}

func NewRateLimiter(rps int, remote RemoteLimiter) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rps,
		burst:    rps * 2,
		remote:   remote,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()

	return entry.limiter
}

// Allow reports whether one more request for key is allowed.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.remote != nil {
		ok, err := rl.remote.AllowAction(ctx, key, rl.rps, rl.burst)
		if err == nil {
			return ok
		}
		log.Printf("WARN remote rate limiter failed, using local limiter: %v", err)
	}
	return rl.getLimiter(key).Allow()
}

// Cleanup removes limiters idle for longer than idle, every interval, until ctx ends.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.evictIdle(idle)
			}
		}
	}()
}

func (rl *RateLimiter) evictIdle(idle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > idle {
			delete(rl.limiters, key)
		}
	}
}

// RateLimitMiddleware limits requests per client IP and route group.
func RateLimitMiddleware(rl *RateLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		if !rl.Allow(c.Request.Context(), key) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
