package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"placementcell/internal/common"
	"placementcell/internal/http/response"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// RateLimiter is the in-process limiter used when Redis is not configured.
// Each key gets a token bucket refilled at limit per window.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	now      func() time.Time
}

type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const idleLimiterTTL = 30 * time.Minute

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{limiters: make(map[string]*keyLimiter), now: time.Now}
}

func (r *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	entry, ok := r.limiters[key]
	if !ok {
		entry = &keyLimiter{limiter: rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)}
		r.limiters[key] = entry
		r.sweep(now)
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (r *RateLimiter) sweep(now time.Time) {
	for key, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > idleLimiterTTL {
			delete(r.limiters, key)
		}
	}
}

func RateLimit(limiter Limiter, keyFn func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !limiter.Allow(key, limit, window) {
				RejectRateLimited(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RejectRateLimited writes the 429 envelope.
func RejectRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "60")
	response.Error(w, common.NewError(common.CodeRateLimited, "too many requests", nil))
}
