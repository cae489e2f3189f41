// Package openai provides a translation provider adapter using the
// OpenAI chat completions API, or any compatible endpoint via BaseURL.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/glotdeck/glotdeck/internal/adapters/driven/llm/segment"
	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.TranslationProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 120 * time.Second

	translationTemperature = 0.3
)

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL. Useful for Azure OpenAI and
	// other compatible APIs.
	BaseURL string

	// Model is the default model (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Provider translates fragment batches through the OpenAI API.
type Provider struct {
	client *gopenai.Client
	model  string
}

// New creates a new OpenAI translation provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", domain.ErrMissingCredentials)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Provider{
		client: gopenai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

// TranslateBatch translates every fragment of the job in one API call.
func (p *Provider) TranslateBatch(ctx context.Context, job driven.BatchJob) ([]driven.BatchItem, error) {
	payload := segment.Encode(job.Fragments)

	model := job.Model
	if model == "" {
		model = p.model
	}

	resp, err := p.client.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model:       model,
		MaxTokens:   segment.MaxTokens(payload),
		Temperature: translationTemperature,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: segment.SystemPrompt(job)},
			{Role: gopenai.ChatMessageRoleUser, Content: payload},
		},
	})
	if err != nil {
		return nil, classifyErr(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", domain.ErrIncompleteResponse)
	}

	items, err := segment.Decode(resp.Choices[0].Message.Content, job.Fragments)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return items, nil
}

// classifyErr maps client errors onto the domain sentinels.
func classifyErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *gopenai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		case apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500:
			return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
}

// ModelName returns the default model.
func (p *Provider) ModelName() string {
	return p.model
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
