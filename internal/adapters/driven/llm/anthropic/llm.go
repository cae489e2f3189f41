// Package anthropic provides a translation provider adapter using the
// Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/glotdeck/glotdeck/internal/adapters/driven/llm/segment"
	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.TranslationProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-haiku-20240307"
	DefaultTimeout = 120 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	// translationTemperature keeps output close to the source text.
	translationTemperature = 0.3
)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the default model (default: claude-3-haiku-20240307).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Provider translates fragment batches through the Anthropic API.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      string            `json:"system,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates a new Anthropic translation provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Provider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// TranslateBatch translates every fragment of the job in one API call.
func (p *Provider) TranslateBatch(ctx context.Context, job driven.BatchJob) ([]driven.BatchItem, error) {
	payload := segment.Encode(job.Fragments)

	model := job.Model
	if model == "" {
		model = p.model
	}

	reqBody := messagesRequest{
		Model:       model,
		System:      segment.SystemPrompt(job),
		MaxTokens:   segment.MaxTokens(payload),
		Temperature: translationTemperature,
		Messages: []messagesMessage{
			{Role: "user", Content: payload},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.baseURL+"/v1/messages",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrProviderUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(body, &msgResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrIncompleteResponse, err)
	}
	if msgResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, msgResp.Error.Message)
	}
	if len(msgResp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty content", domain.ErrIncompleteResponse)
	}

	text := ""
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	items, err := segment.Decode(text, job.Fragments)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	return items, nil
}

// classifyStatus maps non-2xx responses onto the domain sentinels.
func classifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", domain.ErrRateLimited, status)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: status %d: %s", domain.ErrBadRequest, status, string(body))
	default:
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, status)
	}
}

// ModelName returns the default model.
func (p *Provider) ModelName() string {
	return p.model
}

// Close releases resources.
func (p *Provider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
