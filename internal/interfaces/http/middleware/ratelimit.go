package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledgerdesk/backend/internal/interfaces/http/dto"
)

// RateLimiter counts requests per key in fixed windows. Expired windows are
// swept lazily on the next call after a full window has passed.
type RateLimiter struct {
	mu        sync.Mutex
	windows   map[string]*rateWindow
	limit     int
	span      time.Duration
	now       func() time.Time
	lastSweep time.Time
}

type rateWindow struct {
	start time.Time
	used  int
}

// RateDecision is the outcome of one Allow call
type RateDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the key's window resets
	RetryAfter time.Duration
}

// NewRateLimiter allows limit requests per key in every window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return newRateLimiterWithClock(limit, window, time.Now)
}

func newRateLimiterWithClock(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		windows:   make(map[string]*rateWindow),
		limit:     limit,
		span:      window,
		now:       now,
		lastSweep: now(),
	}
}

// Allow consumes one request for key
func (rl *RateLimiter) Allow(key string) RateDecision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.span {
		for k, w := range rl.windows {
			if now.Sub(w.start) >= rl.span {
				delete(rl.windows, k)
			}
		}
		rl.lastSweep = now
	}

	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.span {
		w = &rateWindow{start: now}
		rl.windows[key] = w
	}
	retry := w.start.Add(rl.span).Sub(now)

	if w.used >= rl.limit {
		return RateDecision{RetryAfter: retry}
	}
	w.used++
	return RateDecision{Allowed: true, Remaining: rl.limit - w.used, RetryAfter: retry}
}

// RateLimit limits every request by client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter, "ip:", "Too many requests. Please try again later.")
}

// AuthRateLimit limits login attempts per client IP. It keeps its own key
// space so a busy dashboard does not lock its user out of signing in.
func AuthRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return rateLimit(limiter, "login:", "Too many login attempts. Please try again later.")
}

func rateLimit(limiter *RateLimiter, prefix, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(prefix + c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRateLimited, message, RequestIDFrom(c)))
			return
		}
		c.Next()
	}
}
