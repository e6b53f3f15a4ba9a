package security

import (
	"errors"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit kinds used by the gateway.
const (
	KindRun  = "run"
	KindAuth = "auth"
)

// Limit configures one token bucket. A zero PerSecond disables the bucket.
type Limit struct {
	PerSecond float64
	Burst     int
}

// RateLimitConfig holds per-kind limits.
type RateLimitConfig struct {
	// Run limits manual task and schedule runs.
	Run Limit

	// Auth limits authentication attempts on the admin API.
	Auth Limit
}

// DefaultRateLimitConfig allows one manual run per second with a burst of
// five, and ten authentication attempts per second with a burst of twenty.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Run:  Limit{PerSecond: 1, Burst: 5},
		Auth: Limit{PerSecond: 10, Burst: 20},
	}
}

// RateLimiter keeps one token bucket per kind. Buckets are fixed at
// construction, so it is safe for concurrent use.
type RateLimiter struct {
	buckets map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter. Kinds with a zero rate are
// unlimited. A zero burst defaults to one.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{buckets: make(map[string]*rate.Limiter)}
	rl.set(KindRun, cfg.Run)
	rl.set(KindAuth, cfg.Auth)
	return rl
}

func (rl *RateLimiter) set(kind string, l Limit) {
	if l.PerSecond <= 0 {
		return
	}
	burst := l.Burst
	if burst <= 0 {
		burst = 1
	}
	rl.buckets[kind] = rate.NewLimiter(rate.Limit(l.PerSecond), burst)
}

// Allow consumes one token of kind. Returns ErrRateLimited when the
// bucket is empty. Unknown kinds are unlimited.
func (rl *RateLimiter) Allow(kind string) error {
	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}
	if !b.Allow() {
		return ErrRateLimited
	}
	return nil
}

// Limited reports whether kind has a bucket.
func (rl *RateLimiter) Limited(kind string) bool {
	_, ok := rl.buckets[kind]
	return ok
}
