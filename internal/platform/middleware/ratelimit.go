package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig tunes the per-caller token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// bucket is one caller's refillable allowance.
type bucket struct {
	remaining float64
	last      time.Time
}

// limiter maps callers to buckets. Buckets refill lazily on access rather
// than on a timer, so idle callers cost nothing.
type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64
	burst   float64
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		buckets: make(map[string]*bucket),
		rate:    cfg.RequestsPerSecond,
		burst:   float64(cfg.BurstSize),
	}
}

// take spends one token for key. When the bucket is empty it reports the
// whole seconds until the next token accrues.
func (l *limiter) take(key string) (ok bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{remaining: l.burst, last: now}
		l.buckets[key] = b
	}

	b.remaining += now.Sub(b.last).Seconds() * l.rate
	if b.remaining > l.burst {
		b.remaining = l.burst
	}
	b.last = now

	if b.remaining >= 1 {
		b.remaining--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 1
	}
	return false, int((1-b.remaining)/l.rate) + 1
}

// RateLimit throttles requests per organization and client IP. Requests
// without an authenticated org share the plain IP key.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	lim := newLimiter(cfg)
	limitHeader := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if orgID, ok := c.Get("jwt_org_id").(string); ok && orgID != "" {
				key = orgID + ":" + key
			}

			allowed, retryAfter := lim.take(key)
			c.Response().Header().Set("X-RateLimit-Limit", limitHeader)
			if !allowed {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
