// Package retry provides exponential-backoff retry for fallible calls.
//
// The final attempt's error is returned unchanged, so callers can keep
// using errors.Is / errors.As to classify what ultimately failed.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Default policy values.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 8 * time.Second
	DefaultMaxElapsed   = 30 * time.Second
	DefaultMultiplier   = 2.0
)

// Policy configures the backoff schedule.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between any two attempts.
	MaxDelay time.Duration

	// MaxElapsed caps the total time spent waiting between attempts.
	// Once the budget is spent no further retries are scheduled.
	MaxElapsed time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64
}

// DefaultPolicy returns the standard schedule: 3 attempts, 500ms base
// delay doubling per attempt, capped at 8s per wait and 30s overall.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		MaxElapsed:   DefaultMaxElapsed,
		Multiplier:   DefaultMultiplier,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = DefaultMaxElapsed
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

type options struct {
	onRetry   func(attempt int, err error, delay time.Duration)
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option customises a Do call.
type Option func(*options)

// WithOnRetry registers an observability hook invoked before each retry
// sleep with the failed attempt number (1-based) and its error. The
// hook observes the error; it cannot swallow it.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(o *options) { o.onRetry = fn }
}

// WithClassifier installs an error classifier. When it returns false
// the error is treated as non-retryable and returned immediately.
// Without a classifier every error is retried.
func WithClassifier(fn func(error) bool) Option {
	return func(o *options) { o.retryable = fn }
}

// withSleep replaces the inter-attempt sleep. Test hook.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// Do runs op until it succeeds, the policy is exhausted, the error is
// classified non-retryable, or ctx is cancelled. Backoff is exponential
// with equal jitter: each wait is uniformly drawn from [d/2, d].
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	p = p.withDefaults()

	o := options{sleep: sleepCtx}
	for _, apply := range opts {
		apply(&o)
	}

	var zero T
	var lastErr error
	delay := p.InitialDelay
	deadline := time.Now().Add(p.MaxElapsed)

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts {
			break
		}
		if o.retryable != nil && !o.retryable(err) {
			break
		}

		wait := jitter(delay)
		if time.Now().Add(wait).After(deadline) {
			break
		}
		if o.onRetry != nil {
			o.onRetry(attempt, err, wait)
		}
		if err := o.sleep(ctx, wait); err != nil {
			return zero, lastErr
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return zero, lastErr
}

// jitter draws uniformly from [d/2, d].
func jitter(d time.Duration) time.Duration {
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
