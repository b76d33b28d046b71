// Package ratelimit provides keyed token-bucket limiters.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// InMemoryRateLimiter keeps one token bucket per key in process memory.
// Buckets idle for longer than maxAge are dropped by a background sweep.
type InMemoryRateLimiter struct {
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*entry

	now             func() time.Time
	cleanupInterval time.Duration
	maxAge          time.Duration
	stop            chan struct{}
	stopOnce        sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInMemoryRateLimiter allows rps requests per second per key with bursts
// of up to burst requests. Call Stop to end the cleanup goroutine.
func NewInMemoryRateLimiter(rps float64, burst int) *InMemoryRateLimiter {
	l := &InMemoryRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		limiters:        map[string]*entry{},
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stop:            make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// PerMinute allows n requests per key per minute, all of which may arrive at once.
func PerMinute(n int) *InMemoryRateLimiter {
	return NewInMemoryRateLimiter(float64(n)/60, n)
}

func (l *InMemoryRateLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()

	l.mu.Lock()
	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

func (l *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops buckets not used within maxAge. A dropped bucket comes back full.
func (l *InMemoryRateLimiter) sweep() int {
	cutoff := l.now().Add(-l.maxAge)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for key, e := range l.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(l.limiters, key)
			n++
		}
	}
	return n
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *InMemoryRateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Size is the number of tracked keys.
func (l *InMemoryRateLimiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Unlimited allows every request.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) bool { return true }
