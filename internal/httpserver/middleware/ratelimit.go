package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/mentor_portal/internal/transport"
	"github.com/Skotchmaster/mentor_portal/pkg/logging"
)

// DefaultIdleTTL is how long a client bucket survives without requests. It
// must exceed the time a bucket needs to refill.
const DefaultIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter is a token bucket per client IP. It guards the credential
// endpoints against password guessing. The client IP comes from
// echo's IPExtractor, so headers are only trusted behind a known proxy.
type RateLimiter struct {
	visitors  sync.Map // ip -> *visitor
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()
	v, ok := rl.visitors.Load(key)
	if !ok {
		v, _ = rl.visitors.LoadOrStore(key, &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(now.UnixNano())
	rl.sweep(now)
	return vis.limiter
}

// sweep drops buckets idle for longer than idleTTL, at most once per idleTTL.
func (rl *RateLimiter) sweep(now time.Time) {
	last := rl.lastSweep.Load()
	if now.UnixNano()-last < int64(rl.idleTTL) {
		return
	}
	if !rl.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	cutoff := now.Add(-rl.idleTTL).UnixNano()
	rl.visitors.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			rl.visitors.Delete(k)
		}
		return true
	})
}

// Len reports how many client buckets are held.
func (rl *RateLimiter) Len() int {
	n := 0
	rl.visitors.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			l := rl.limiter(ip)
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))

			if !l.Allow() {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", "1")
				logging.FromContext(c.Request().Context()).Warn("rate_limited", "remote_ip", ip)
				return c.JSON(http.StatusTooManyRequests, transport.ErrorEnvelope{
					Success: false,
					Error:   "Too many requests",
				})
			}

			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(int(l.Tokens()), 0)))
			return next(c)
		}
	}
}
