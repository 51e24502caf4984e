package gateway

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedConnections = 4096

type rateLimitEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter bounds inbound messages per connection id to rpm requests per
// minute using a token bucket per connection, evicting the least recently
// used entries once the tracked set hits maxTrackedConnections. Grounded on
// internal/channels/ratelimit.go's WebhookRateLimiter for the bounded-map
// idiom, but the per-key limiting itself is golang.org/x/time/rate rather
// than a hand-rolled window counter. rpm <= 0 disables limiting entirely
// (spec's GatewayConfig.RateLimitRPM convention: 0 or negative means off).
type RateLimiter struct {
	rpm   int
	burst int

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

// NewRateLimiter builds a RateLimiter allowing rpm requests/minute per
// connection id, with bursts up to rpm/4 (minimum 1) above the steady rate.
func NewRateLimiter(rpm int) *RateLimiter {
	burst := rpm / 4
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{rpm: rpm, burst: burst, entries: make(map[string]*rateLimitEntry)}
}

// Enabled reports whether rate limiting is active.
func (r *RateLimiter) Enabled() bool { return r.rpm > 0 }

// Allow reports whether id may send another message right now.
func (r *RateLimiter) Allow(id string) bool {
	if !r.Enabled() {
		return true
	}
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		if len(r.entries) >= maxTrackedConnections {
			r.evictOldestLocked()
		}
		e = &rateLimitEntry{limiter: rate.NewLimiter(rate.Limit(float64(r.rpm)/60), r.burst)}
		r.entries[id] = e
	}
	e.lastSeen = time.Now()
	r.mu.Unlock()
	return e.limiter.Allow()
}

// evictOldestLocked drops the least-recently-seen entry. Called with mu held.
func (r *RateLimiter) evictOldestLocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range r.entries {
		if oldestKey == "" || e.lastSeen.Before(oldest) {
			oldestKey, oldest = k, e.lastSeen
		}
	}
	if oldestKey != "" {
		delete(r.entries, oldestKey)
	}
}

// Forget drops tracking for id, called on disconnect.
func (r *RateLimiter) Forget(id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}
