package domain

import "errors"

// Domain errors represent translation pipeline failures.
// Provider adapters map transport-level failures onto these sentinels
// so the retry layer can tell transient from permanent without
// inspecting provider-specific error types.
var (
	// ErrMissingCredentials indicates no API credential is configured.
	// This is the only error class that fails a request outright.
	ErrMissingCredentials = errors.New("missing API credentials")

	// ErrInvalidRequest indicates a malformed TranslationRequest.
	ErrInvalidRequest = errors.New("invalid translation request")

	// ErrDuplicateFragment indicates two fragments share an id.
	// Fragment ids must be unique within one request.
	ErrDuplicateFragment = errors.New("duplicate fragment id")

	// ErrRateLimited indicates the provider rejected a call with a
	// rate-limit response. Retryable after backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates a transient provider failure:
	// network error, timeout or 5xx response. Retryable.
	ErrProviderUnavailable = errors.New("translation provider unavailable")

	// ErrBadRequest indicates the provider permanently rejected a call
	// (4xx other than rate limit). Never retried.
	ErrBadRequest = errors.New("provider rejected request")

	// ErrIncompleteResponse indicates the provider answered successfully
	// but one or more segment markers were missing from the body.
	// Treated as a sub-batch failure eligible for retry.
	ErrIncompleteResponse = errors.New("incomplete provider response")

	// ErrCacheUnavailable indicates the cache store failed. Cache errors
	// never abort translation; lookups fail open as misses.
	ErrCacheUnavailable = errors.New("translation cache unavailable")
)

// Retryable reports whether an error is worth another attempt.
// Unknown errors default to retryable so that transient transport
// failures without a sentinel classification still get their attempts.
func Retryable(err error) bool {
	return !errors.Is(err, ErrBadRequest)
}
