// Package ratelimit implements keyed token buckets used to throttle manual triggers.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	// Every is the minimum spacing between admitted events per key. Zero disables limiting.
	Every time.Duration
	Burst int
}

// Limiter manages one token bucket per key.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	limit := rate.Every(cfg.Every)
	if cfg.Every <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow consumes a token for key without blocking. When the bucket is empty it
// returns false and how long the caller should wait before retrying.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	return l.allowAt(key, time.Now())
}

func (l *Limiter) allowAt(key string, now time.Time) (bool, time.Duration) {
	limiter := l.bucket(key)
	res := limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, 0
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}
