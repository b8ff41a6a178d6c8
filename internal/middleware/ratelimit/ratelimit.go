// Package ratelimit provides per-IP token bucket rate limiting.
package ratelimit

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/zktrails/zktrails/internal/middleware/realip"
)

// Config holds the configuration for rate limiting
type Config struct {
	Enabled bool
	// RequestsPerMin is the steady rate allowed per client IP
	RequestsPerMin int
	// BurstSize is the maximum burst size
	BurstSize int
	// CleanupMinutes is how long an idle client is remembered
	CleanupMinutes int
	// CostlyPerMin applies to POST requests on CostlyPaths; zero disables
	// the separate bucket
	CostlyPerMin int
	// CostlyPaths are path suffixes that drive the ledger or the prover
	CostlyPaths []string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages per-IP buckets.
type RateLimiter struct {
	clock   clockwork.Clock
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	costly  rate.Limit
	paths   []string
	idle    time.Duration
	stopCh  chan struct{}
	stopped sync.Once
}

// New creates a RateLimiter and starts its cleanup loop.
func New(cfg Config, clock clockwork.Clock) *RateLimiter {
	idle := time.Duration(cfg.CleanupMinutes) * time.Minute
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		clock:   clock,
		buckets: make(map[string]*bucket),
		limit:   perMinute(cfg.RequestsPerMin),
		burst:   burst,
		costly:  perMinute(cfg.CostlyPerMin),
		paths:   cfg.CostlyPaths,
		idle:    idle,
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// Stop stops the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.stopped.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := rl.clock.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			rl.pruneIdle()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) pruneIdle() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.clock.Now().Add(-rl.idle)
	pruned := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			pruned++
		}
	}
	return pruned
}

func (rl *RateLimiter) allow(key string, limit rate.Limit, burst int) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(limit, burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) isCostly(r *http.Request) bool {
	if rl.costly <= 0 || r.Method != http.MethodPost {
		return false
	}
	for _, p := range rl.paths {
		if strings.HasSuffix(r.URL.Path, p) {
			return true
		}
	}
	return false
}

var healthPaths = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/readyz":  true,
}

// Middleware rejects requests over the client's budget with 429. Costly
// requests draw from both the general and the costly bucket; the costly
// bucket does not burst.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ip := realip.GetClientIP(r)
			if !rl.allow(ip, rl.limit, rl.burst) || (rl.isCostly(r) && !rl.allow("costly:"+ip, rl.costly, 1)) {
				writeLimited(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    "RATE_LIMIT_EXCEEDED",
			"message": "Too many requests. Please try again later.",
		},
	})
}

// Middleware returns a rate limiting middleware for cfg, or a pass-through
// when limiting is disabled. The limiter lives for the rest of the process.
func Middleware(cfg Config, clock clockwork.Clock) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return New(cfg, clock).Middleware()
}
