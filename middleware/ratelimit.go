package middleware

import (
	"sync"
	"time"

	"puceats-api/resp"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterRegistry keeps one token bucket per client key.
type RateLimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	idle     time.Duration
	swept    time.Time
	now      func() time.Time
}

// NewRateLimiterRegistry allows rps requests per second per client with the
// given burst. Clients idle for longer than idle are forgotten.
func NewRateLimiterRegistry(rps float64, burst int, idle time.Duration) *RateLimiterRegistry {
	return &RateLimiterRegistry{
		limiters: make(map[string]*clientLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
	}
}

// Allow reports whether key may make another request now.
func (r *RateLimiterRegistry) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.idle > 0 && now.Sub(r.swept) > r.idle {
		for k, cl := range r.limiters {
			if now.Sub(cl.lastSeen) > r.idle {
				delete(r.limiters, k)
			}
		}
		r.swept = now
	}

	cl, ok := r.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Len returns the number of tracked clients.
func (r *RateLimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// RateLimit rejects clients, keyed by IP, that exceed the registry's rate.
func RateLimit(reg *RateLimiterRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !reg.Allow(c.ClientIP()) {
			resp.TooManyRequests(c)
			return
		}
		c.Next()
	}
}
