package domain

// TranslationSource records which path produced a fragment's translation.
type TranslationSource string

const (
	// SourceCache means the translation was served from the cache.
	SourceCache TranslationSource = "cache"

	// SourceAPI means the translation came from a live provider call.
	SourceAPI TranslationSource = "api"

	// SourceFallback means translation was not possible and the original
	// text was carried over unchanged.
	SourceFallback TranslationSource = "fallback"
)

// Fragment is a single translatable unit: a slide text box, a table
// cell, speaker notes, etc. It is immutable once submitted.
type Fragment struct {
	// ID is an opaque caller-assigned identifier, unique within one request.
	ID string

	// Original is the source text.
	Original string
}

// TranslatedFragment is the per-fragment output of a translation job.
type TranslatedFragment struct {
	// ID matches the input Fragment's ID.
	ID string

	// Original is the untranslated source text.
	Original string

	// Translated is the translation, or Original when Source is SourceFallback.
	Translated string

	// Source records how the translation was obtained. Callers use it to
	// distinguish a genuine translation from a degraded fallback.
	Source TranslationSource
}
