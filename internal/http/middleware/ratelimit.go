package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/parkgolf/golf-bff/internal/apperr"
)

// Limiter decides whether one more request for key fits the budget.
// RateLimiter keeps buckets in process; RedisLimiter shares them between
// replicas.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// keyFunc picks the bucket of a request, e.g. "ip:<addr>".
type keyFunc func(*gin.Context) string

// KeyByIP keys by client IP. Bearer tokens are ignored: their claims are
// unverified and a caller can mint any number of them.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is an in-memory Limiter with one token bucket per key. Buckets
// idle for longer than idleTTL are swept at most once per idleTTL.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	buckets   map[string]*bucket
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter builds a RateLimiter. A burst <= 0 is coerced to 1.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		buckets:   make(map[string]*bucket),
		idleTTL:   10 * time.Minute,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// Allow implements Limiter. It never fails.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.idleTTL {
		rl.sweepLocked(now)
	}
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.lim.AllowN(now, 1), nil
}

// Len is the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for k, b := range rl.buckets {
		if now.Sub(b.lastSeen) >= rl.idleTTL {
			delete(rl.buckets, k)
		}
	}
	rl.lastSweep = now
}

// RateLimit enforces l per key. Over-budget requests get Retry-After and a
// SYS_005 error. When the limiter itself fails (Redis down) the request goes
// through and the failure is logged.
func RateLimit(l Limiter, keyFn keyFunc, retryAfter time.Duration) gin.HandlerFunc {
	if keyFn == nil {
		keyFn = KeyByIP()
	}
	secs := int(retryAfter.Round(time.Second).Seconds())
	if secs < 1 {
		secs = 1
	}
	retry := strconv.Itoa(secs)

	return func(c *gin.Context) {
		key := keyFn(c)
		ok, err := l.Allow(c.Request.Context(), key)
		switch {
		case err != nil:
			LoggerFrom(c).Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
		case !ok:
			c.Header("Retry-After", retry)
			_ = c.Error(apperr.New(apperr.CodeRateLimited, "").WithDetail("retryAfterSeconds", secs))
			c.Abort()
			return
		}
		c.Next()
	}
}
