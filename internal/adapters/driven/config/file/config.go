package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/retry"
)

// Provider names accepted in the [provider] section.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Cache backends accepted in the [cache] section.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheNone   = "none"
)

// Config is the engine's full configuration tree, one section per
// subsystem. Zero values mean "use the default"; Load fills them in.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Batch    BatchConfig    `toml:"batch"`
	Rate     RateConfig     `toml:"rate"`
	Retry    RetryConfig    `toml:"retry"`
	Cache    CacheConfig    `toml:"cache"`
	Breaker  BreakerConfig  `toml:"breaker"`
	Verbose  bool           `toml:"verbose"`
}

// ProviderConfig selects and authenticates the translation backend.
type ProviderConfig struct {
	// Name is the backend: "anthropic" or "openai".
	Name string `toml:"name"`

	// APIKey authenticates against the provider. When empty, Load
	// falls back to ANTHROPIC_API_KEY or OPENAI_API_KEY depending
	// on Name.
	APIKey string `toml:"api_key"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL points at a compatible alternative endpoint.
	BaseURL string `toml:"base_url"`

	// TimeoutSeconds bounds a single HTTP call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type BatchConfig struct {
	Size           int     `toml:"size"`
	Concurrency    int     `toml:"concurrency"`
	MinSuccessRate float64 `toml:"min_success_rate"`
	MaxFragmentLen int     `toml:"max_fragment_len"`
}

type RateConfig struct {
	MaxInFlight       int     `toml:"max_in_flight"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

type RetryConfig struct {
	MaxAttempts    int     `toml:"max_attempts"`
	InitialDelayMS int     `toml:"initial_delay_ms"`
	MaxDelayMS     int     `toml:"max_delay_ms"`
	MaxElapsedMS   int     `toml:"max_elapsed_ms"`
	Multiplier     float64 `toml:"multiplier"`
}

type CacheConfig struct {
	// Backend is "memory", "sqlite" or "none".
	Backend string `toml:"backend"`

	// Path is the sqlite database location. Empty means the default
	// under the user's home directory.
	Path string `toml:"path"`

	TTLHours   int `toml:"ttl_hours"`
	MaxEntries int `toml:"max_entries"`
}

type BreakerConfig struct {
	ConsecutiveFailures int `toml:"consecutive_failures"`
	OpenTimeoutSeconds  int `toml:"open_timeout_seconds"`
}

// Default returns a ready-to-validate configuration using the
// Anthropic backend, an in-memory cache and credentials from the
// environment.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

// DefaultPath returns the conventional config file location,
// ~/.glotdeck/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".glotdeck", "config.toml"), nil
}

// Load reads the TOML file at path, applies defaults for absent keys
// and pulls credentials from the environment when the file carries
// none. A missing file yields the defaults rather than an error.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Nothing on disk, run on defaults and env credentials.
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderAnthropic
	}
	if c.Provider.TimeoutSeconds <= 0 {
		c.Provider.TimeoutSeconds = 60
	}

	if c.Batch.Size <= 0 {
		c.Batch.Size = domain.DefaultBatchSize
	}
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = domain.DefaultConcurrency
	}
	if c.Batch.MinSuccessRate <= 0 {
		c.Batch.MinSuccessRate = domain.DefaultMinSuccessRate
	}
	if c.Batch.MaxFragmentLen <= 0 {
		c.Batch.MaxFragmentLen = domain.DefaultMaxFragmentLen
	}

	if c.Rate.MaxInFlight <= 0 {
		c.Rate.MaxInFlight = c.Batch.Concurrency
	}

	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = retry.DefaultMaxAttempts
	}
	if c.Retry.InitialDelayMS <= 0 {
		c.Retry.InitialDelayMS = int(retry.DefaultInitialDelay / time.Millisecond)
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = int(retry.DefaultMaxDelay / time.Millisecond)
	}
	if c.Retry.MaxElapsedMS <= 0 {
		c.Retry.MaxElapsedMS = int(retry.DefaultMaxElapsed / time.Millisecond)
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = retry.DefaultMultiplier
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
}

// applyEnv fills the API key from the provider's conventional
// environment variable when the file did not set one.
func (c *Config) applyEnv() {
	if c.Provider.APIKey != "" {
		return
	}
	switch c.Provider.Name {
	case ProviderAnthropic:
		c.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks that the configuration can actually drive the
// engine. It reports the first problem found.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidRequest, c.Provider.Name)
	}

	if c.Provider.APIKey == "" {
		return fmt.Errorf("%w: no API key for provider %q", domain.ErrMissingCredentials, c.Provider.Name)
	}

	switch c.Cache.Backend {
	case CacheMemory, CacheSQLite, CacheNone:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", domain.ErrInvalidRequest, c.Cache.Backend)
	}

	return nil
}

// RetryPolicy converts the retry section into the schedule the
// orchestrator consumes.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: time.Duration(c.Retry.InitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
		MaxElapsed:   time.Duration(c.Retry.MaxElapsedMS) * time.Millisecond,
		Multiplier:   c.Retry.Multiplier,
	}
}
