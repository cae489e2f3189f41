// Package breaker decorates a translation provider with a circuit
// breaker. When the provider is demonstrably down, calls fail fast
// instead of queueing behind the rate gate and burning retry budget on
// a known-dead endpoint.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
	"github.com/glotdeck/glotdeck/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.TranslationProvider = (*Provider)(nil)

// Default breaker tuning.
const (
	DefaultConsecutiveFailures = 5
	DefaultOpenTimeout         = 30 * time.Second
)

// Config tunes the circuit breaker.
type Config struct {
	// ConsecutiveFailures opens the breaker after this many transport
	// failures in a row.
	ConsecutiveFailures uint32

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// Provider wraps another TranslationProvider behind a circuit breaker.
type Provider struct {
	next driven.TranslationProvider
	cb   *gobreaker.CircuitBreaker
}

// New wraps next with a circuit breaker.
func New(next driven.TranslationProvider, cfg Config) *Provider {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultConsecutiveFailures
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}

	settings := gobreaker.Settings{
		Name:    "translation-provider",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// Only transport-level failures say anything about provider
		// health. Rejected requests and dropped segments are content
		// problems and must not open the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, domain.ErrProviderUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &Provider{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// TranslateBatch forwards to the wrapped provider unless the breaker is
// open, in which case it fails fast with domain.ErrProviderUnavailable.
func (p *Provider) TranslateBatch(ctx context.Context, job driven.BatchJob) ([]driven.BatchItem, error) {
	result, err := p.cb.Execute(func() (any, error) {
		return p.next.TranslateBatch(ctx, job)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open", domain.ErrProviderUnavailable)
		}
		return nil, err
	}
	return result.([]driven.BatchItem), nil
}

// ModelName returns the wrapped provider's model.
func (p *Provider) ModelName() string {
	return p.next.ModelName()
}

// Close closes the wrapped provider.
func (p *Provider) Close() error {
	return p.next.Close()
}
