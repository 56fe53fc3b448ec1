package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimited stands in for rate.Inf, which reports zero tokens and confuses
// Retry-After computation.
const unlimited = 1_000_000_000

// RateLimiter is a token bucket: tokens refill at a constant rate, each
// request consumes one, and the bucket size bounds bursts.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - requestsPerSecond: Sustained rate; 0 disables limiting
//   - burst: Bucket capacity; 0 defaults to requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow consumes a token if one is available and reports whether it did.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// RetryAfter estimates how long until the next token is available.
func (r *RateLimiter) RetryAfter() time.Duration {
	missing := 1 - r.limiter.Tokens()
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(r.limiter.Limit()) * float64(time.Second))
}

// ============================================================================
// Per-client limiting
// ============================================================================

type clientEntry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// PerClient keeps one token bucket per client key (typically the remote IP).
//
// Buckets idle for longer than idleTTL are evicted lazily, at most once per
// idleTTL, so memory tracks the number of recently active clients.
//
// Thread safety:
// All methods are safe for concurrent use.
type PerClient struct {
	mu                sync.Mutex
	requestsPerSecond uint
	burst             uint
	idleTTL           time.Duration
	clients           map[string]*clientEntry
	lastSweep         time.Time
	now               func() time.Time
}

// NewPerClient creates a per-client limiter. A zero idleTTL defaults to ten
// minutes.
func NewPerClient(requestsPerSecond, burst uint, idleTTL time.Duration) *PerClient {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &PerClient{
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		idleTTL:           idleTTL,
		clients:           make(map[string]*clientEntry),
		now:               time.Now,
	}
}

// limiterFor returns the bucket for key, creating it on first use.
func (p *PerClient) limiterFor(key string) *RateLimiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if now.Sub(p.lastSweep) >= p.idleTTL {
		for k, e := range p.clients {
			if now.Sub(e.lastSeen) >= p.idleTTL {
				delete(p.clients, k)
			}
		}
		p.lastSweep = now
	}

	entry, ok := p.clients[key]
	if !ok {
		entry = &clientEntry{limiter: New(p.requestsPerSecond, p.burst)}
		p.clients[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Allow consumes a token from key's bucket.
//
// Returns:
//   - bool: true if the request may proceed
//   - time.Duration: suggested wait before retrying when rejected
func (p *PerClient) Allow(key string) (bool, time.Duration) {
	limiter := p.limiterFor(key)
	if limiter.Allow() {
		return true, 0
	}
	return false, limiter.RetryAfter()
}

// Len returns the number of tracked clients.
func (p *PerClient) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}
