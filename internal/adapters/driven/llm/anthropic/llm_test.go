package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
)

func testJob() driven.BatchJob {
	return driven.BatchJob{
		Fragments: []domain.Fragment{
			{ID: "a", Original: "Hello"},
			{ID: "b", Original: "World"},
		},
		SourceLanguage: "en",
		TargetLanguage: "de",
	}
}

func echoServer(t *testing.T, status int, responseText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-3-haiku-20240307", req["model"])

		w.WriteHeader(status)
		fmt.Fprintf(w, `{"content":[{"type":"text","text":%q}]}`, responseText)
	}))
}

func newTestProvider(t *testing.T, baseURL string) *Provider {
	t.Helper()
	p, err := New(Config{APIKey: "test-key", BaseURL: baseURL})
	require.NoError(t, err)
	return p
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestTranslateBatch(t *testing.T) {
	srv := echoServer(t, http.StatusOK, "<<SEG 1>>\nHallo\n<<SEG 2>>\nWelt\n")
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	items, err := p.TranslateBatch(context.Background(), testJob())

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, driven.BatchItem{ID: "a", Translated: "Hallo"}, items[0])
	assert.Equal(t, driven.BatchItem{ID: "b", Translated: "Welt"}, items[1])
}

func TestPayloadCarriesMarkersAndText(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System   string `json:"system"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotBody = req.Messages[0].Content
		assert.Contains(t, req.System, `"de"`)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"<<SEG 1>>\nHallo\n<<SEG 2>>\nWelt"}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.TranslateBatch(context.Background(), testJob())
	require.NoError(t, err)

	assert.Contains(t, gotBody, "<<SEG 1>>\nHello")
	assert.Contains(t, gotBody, "<<SEG 2>>\nWorld")
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusBadRequest, domain.ErrBadRequest},
		{http.StatusUnauthorized, domain.ErrBadRequest},
		{http.StatusInternalServerError, domain.ErrProviderUnavailable},
		{http.StatusBadGateway, domain.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"type":"x","message":"nope"}}`)
			}))
			defer srv.Close()

			p := newTestProvider(t, srv.URL)
			_, err := p.TranslateBatch(context.Background(), testJob())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMissingSegmentIsIncompleteResponse(t *testing.T) {
	srv := echoServer(t, http.StatusOK, "<<SEG 1>>\nHallo\n")
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.TranslateBatch(context.Background(), testJob())
	assert.ErrorIs(t, err, domain.ErrIncompleteResponse)
}

func TestMalformedBodyIsIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	_, err := p.TranslateBatch(context.Background(), testJob())
	assert.ErrorIs(t, err, domain.ErrIncompleteResponse)
}

func TestNetworkErrorIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	p := newTestProvider(t, srv.URL)
	_, err := p.TranslateBatch(context.Background(), testJob())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestJobModelOverridesDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-3-5-sonnet-latest", req["model"])
		fmt.Fprint(w, `{"content":[{"type":"text","text":"<<SEG 1>>\nHallo\n<<SEG 2>>\nWelt"}]}`)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	job := testJob()
	job.Model = "claude-3-5-sonnet-latest"
	_, err := p.TranslateBatch(context.Background(), job)
	require.NoError(t, err)
}

func TestModelName(t *testing.T) {
	p := newTestProvider(t, "http://unused")
	assert.Equal(t, DefaultModel, p.ModelName())
	assert.True(t, strings.HasPrefix(p.ModelName(), "claude-"))
	assert.NoError(t, p.Close())
}
