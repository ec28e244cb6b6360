package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"streetwise-crawler/logger"
)

// UserIDHeader identifies the caller for rate limiting. Requests without
// it are keyed by client IP.
const UserIDHeader = "X-User-ID"

const limiterWindow = time.Hour

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client a number of requests per hour, refilled
// one at a time.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// NewRateLimiter creates a limiter allowing perHour requests per client.
func NewRateLimiter(perHour int) *RateLimiter {
	perHour = max(perHour, 1)
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(limiterWindow / time.Duration(perHour)),
		burst:    perHour,
		now:      time.Now,
		logger:   logger.WithComponent("ratelimit"),
	}
}

// Allow takes a token for key. When none is left it returns how long
// until the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	entry, ok := rl.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = now

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops clients idle for a full window; their buckets are full again.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < limiterWindow {
		return
	}
	rl.lastSweep = now
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) >= limiterWindow {
			delete(rl.limiters, key)
		}
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientKey(r)
		allowed, retryAfter := rl.Allow(key)
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			rl.logger.Infow("Rate limit exceeded",
				"client", key,
				"path", r.URL.Path,
				"retry_after", seconds,
				"request_id", RequestIDFromContext(r.Context()),
			)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many crawl requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientKey identifies the caller by X-User-ID, falling back to the
// remote IP.
func ClientKey(r *http.Request) string {
	if id := r.Header.Get(UserIDHeader); id != "" {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
