package driven

import "context"

// TranslationCache is the outbound port to a key-value translation
// store. Keys are derived with domain.CacheKey; values are translated
// text. The engine is agnostic to whether the store is in-process or
// externally hosted.
//
// Cache failures must never abort translation: callers treat any error
// as a miss (fail open). Set is idempotent: re-setting an existing key
// overwrites without error. Implementations must be safe for concurrent
// use and must never return a logically expired entry from Get.
type TranslationCache interface {
	// Get returns the cached translation for key, and whether it exists.
	Get(ctx context.Context, key string) (translated string, ok bool, err error)

	// Set stores the translation for key, overwriting any previous value.
	Set(ctx context.Context, key, translated string) error

	// Close releases resources.
	Close() error
}
