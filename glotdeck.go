// Package glotdeck is the embeddable batch translation engine. It
// composes a translation provider, a content-addressed cache, a rate
// gate and the orchestration pipeline behind a single facade. Host
// applications construct an Engine once and submit TranslationRequests
// from as many goroutines as they like.
package glotdeck

import (
	"context"
	"fmt"
	"time"

	"github.com/glotdeck/glotdeck/internal/adapters/driven/cache/memory"
	"github.com/glotdeck/glotdeck/internal/adapters/driven/cache/sqlite"
	"github.com/glotdeck/glotdeck/internal/adapters/driven/config/file"
	"github.com/glotdeck/glotdeck/internal/adapters/driven/llm/anthropic"
	"github.com/glotdeck/glotdeck/internal/adapters/driven/llm/breaker"
	"github.com/glotdeck/glotdeck/internal/adapters/driven/llm/openai"
	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
	"github.com/glotdeck/glotdeck/internal/core/ports/driving"
	"github.com/glotdeck/glotdeck/internal/core/services"
	"github.com/glotdeck/glotdeck/internal/logger"
	"github.com/glotdeck/glotdeck/internal/ratelimit"
)

// Config is the engine configuration tree. See the file package for
// the TOML layout and defaulting rules.
type Config = file.Config

// Request and result types re-exported for embedding applications.
type (
	Fragment           = domain.Fragment
	TranslatedFragment = domain.TranslatedFragment
	TranslationRequest = domain.TranslationRequest
	TranslationSource  = domain.TranslationSource
	Progress           = domain.Progress
	ProgressFunc       = domain.ProgressFunc
	JobResult          = domain.JobResult
)

// Translation sources.
const (
	SourceCache    = domain.SourceCache
	SourceAPI      = domain.SourceAPI
	SourceFallback = domain.SourceFallback
)

// Error classes callers can match with errors.Is.
var (
	ErrMissingCredentials = domain.ErrMissingCredentials
	ErrInvalidRequest     = domain.ErrInvalidRequest
	ErrDuplicateFragment  = domain.ErrDuplicateFragment
)

// DefaultConfig returns the engine defaults: Anthropic provider,
// in-memory cache, credentials from the environment.
func DefaultConfig() Config {
	return file.Default()
}

// LoadConfig reads configuration from path, or from
// ~/.glotdeck/config.toml when path is empty.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		var err error
		path, err = file.DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}
	return file.Load(path)
}

// Engine is the composed translation pipeline.
type Engine struct {
	cfg          Config
	orchestrator driving.BatchTranslator
	provider     driven.TranslationProvider
	cache        driven.TranslationCache
}

// New builds an Engine from cfg. The configuration must validate;
// in particular an API key has to be present for the selected
// provider.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configure engine: %w", err)
	}

	logger.SetVerbose(cfg.Verbose)

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	cache, err := buildCache(cfg)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return assemble(cfg, provider, cache), nil
}

// assemble wires the pipeline around already-built adapters.
func assemble(cfg Config, provider driven.TranslationProvider, cache driven.TranslationCache) *Engine {
	gate := ratelimit.New(ratelimit.Config{
		MaxInFlight:       cfg.Rate.MaxInFlight,
		RequestsPerSecond: cfg.Rate.RequestsPerSecond,
		Burst:             cfg.Rate.Burst,
	})

	return &Engine{
		cfg:          cfg,
		provider:     provider,
		cache:        cache,
		orchestrator: services.NewOrchestrator(provider, cache, gate, cfg.RetryPolicy()),
	}
}

func buildProvider(cfg Config) (driven.TranslationProvider, error) {
	var (
		provider driven.TranslationProvider
		err      error
	)

	timeout := time.Duration(cfg.Provider.TimeoutSeconds) * time.Second
	switch cfg.Provider.Name {
	case file.ProviderAnthropic:
		provider, err = anthropic.New(anthropic.Config{
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
			Timeout: timeout,
		})
	case file.ProviderOpenAI:
		provider, err = openai.New(openai.Config{
			APIKey:  cfg.Provider.APIKey,
			BaseURL: cfg.Provider.BaseURL,
			Model:   cfg.Provider.Model,
			Timeout: timeout,
		})
	default:
		err = fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidRequest, cfg.Provider.Name)
	}
	if err != nil {
		return nil, err
	}

	return breaker.New(provider, breaker.Config{
		ConsecutiveFailures: uint32(cfg.Breaker.ConsecutiveFailures),
		OpenTimeout:         time.Duration(cfg.Breaker.OpenTimeoutSeconds) * time.Second,
	}), nil
}

func buildCache(cfg Config) (driven.TranslationCache, error) {
	ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour

	switch cfg.Cache.Backend {
	case file.CacheNone:
		return nil, nil
	case file.CacheSQLite:
		cache, err := sqlite.New(sqlite.Config{Path: cfg.Cache.Path, TTL: ttl})
		if err != nil {
			return nil, fmt.Errorf("open translation cache: %w", err)
		}
		return cache, nil
	default:
		return memory.New(memory.Config{TTL: ttl, MaxEntries: cfg.Cache.MaxEntries}), nil
	}
}

// Translate runs one batch translation job. It blocks until every
// fragment has settled and always returns a result covering the whole
// request unless the request itself is invalid. Cancel ctx to stop
// dispatching further sub-batches; in-flight calls complete and the
// rest of the request degrades to fallback output.
func (e *Engine) Translate(ctx context.Context, req TranslationRequest) (*JobResult, error) {
	e.applyConfig(&req)
	return e.orchestrator.Translate(ctx, req)
}

// applyConfig fills request knobs the caller left at zero from the
// engine configuration. Per-request values always win.
func (e *Engine) applyConfig(req *TranslationRequest) {
	if req.Model == "" {
		req.Model = e.cfg.Provider.Model
	}
	if req.BatchSize == 0 {
		req.BatchSize = e.cfg.Batch.Size
	}
	if req.Concurrency == 0 {
		req.Concurrency = e.cfg.Batch.Concurrency
	}
	if req.MinSuccessRate == 0 {
		req.MinSuccessRate = e.cfg.Batch.MinSuccessRate
	}
	if req.MaxFragmentLen == 0 {
		req.MaxFragmentLen = e.cfg.Batch.MaxFragmentLen
	}
}

// Close releases the provider connection and the cache store. The
// engine must not be used afterwards.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.provider.Close(); err != nil {
		firstErr = err
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
