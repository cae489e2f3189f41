// Package ratelimit bounds outbound provider calls on two independent
// dimensions: concurrent in-flight calls and calls started per rolling
// time window. The same gate shape serves any rate-limited collaborator;
// each use site parameterises its own instance.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds the gate's two limits.
type Config struct {
	// MaxInFlight is the maximum number of concurrently held tokens.
	MaxInFlight int

	// RequestsPerSecond is the sustained start rate. Zero disables the
	// window dimension, leaving only the in-flight bound.
	RequestsPerSecond float64

	// Burst is the window's burst allowance (default 1 when a rate is set).
	Burst int
}

// Gate is a two-dimensional limiter. Acquisition is fair: pending
// acquirers are served in FIFO order, so sustained load cannot starve
// an earlier waiter.
type Gate struct {
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	inFlight atomic.Int64

	mu      sync.Mutex
	retryAt time.Time
}

// New creates a gate from cfg. MaxInFlight values below 1 are raised to 1.
func New(cfg Config) *Gate {
	if cfg.MaxInFlight < 1 {
		cfg.MaxInFlight = 1
	}

	g := &Gate{sem: semaphore.NewWeighted(int64(cfg.MaxInFlight))}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

// Acquire blocks until an in-flight slot and a window token are both
// available, or ctx is cancelled. On success it returns a release
// function that must be called when the guarded call settles; deferring
// it is safe and calling it twice is a no-op.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	// Slot first, window second: a waiter holding a slot delays nobody,
	// whereas burning a window token while queued for a slot would.
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if err := g.waitWindow(ctx); err != nil {
		g.sem.Release(1)
		return nil, err
	}

	g.inFlight.Add(1)

	var once sync.Once
	release := func() {
		once.Do(func() {
			g.inFlight.Add(-1)
			g.sem.Release(1)
		})
	}
	return release, nil
}

// waitWindow honours both the token bucket and any provider-imposed
// backoff recorded via RecordRateLimit.
func (g *Gate) waitWindow(ctx context.Context) error {
	g.mu.Lock()
	retryAt := g.retryAt
	g.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// RecordRateLimit pauses new starts for the given duration. Call it
// when the provider answers with a rate-limit response carrying a
// retry-after hint; zero or negative durations fall back to 30s.
func (g *Gate) RecordRateLimit(after time.Duration) {
	if after <= 0 {
		after = 30 * time.Second
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if until := time.Now().Add(after); until.After(g.retryAt) {
		g.retryAt = until
	}
}

// InFlight returns the number of currently held tokens.
func (g *Gate) InFlight() int {
	return int(g.inFlight.Load())
}
