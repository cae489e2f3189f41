package driven

import (
	"context"

	"github.com/glotdeck/glotdeck/internal/core/domain"
)

// BatchJob is one provider call: a sub-batch of fragments to translate
// into TargetLanguage. Fragments keep their caller-assigned ids; the
// adapter is responsible for a wire encoding that maps provider output
// back to those ids without relying on ordinal position.
type BatchJob struct {
	// Fragments is the sub-batch, at most the request's batch size.
	Fragments []domain.Fragment

	// SourceLanguage is the language to translate from, or
	// domain.SourceLanguageAuto.
	SourceLanguage string

	// TargetLanguage is the language to translate into.
	TargetLanguage string

	// Model overrides the provider's default model when non-empty.
	Model string
}

// BatchItem is one translated fragment of a BatchJob.
type BatchItem struct {
	// ID matches the input fragment id.
	ID string

	// Translated is the provider's translation.
	Translated string
}

// TranslationProvider is the outbound port to an LLM translation API.
//
// Implementations must classify failures onto the domain sentinels:
// rate-limit responses as domain.ErrRateLimited, other permanent
// rejections as domain.ErrBadRequest, transport and 5xx failures as
// domain.ErrProviderUnavailable, and a 200-class response missing one
// or more fragments as domain.ErrIncompleteResponse.
type TranslationProvider interface {
	// TranslateBatch translates every fragment of the job. A partial
	// answer is an error, never a short result slice.
	TranslateBatch(ctx context.Context, job BatchJob) ([]BatchItem, error)

	// ModelName returns the model used when BatchJob.Model is empty.
	ModelName() string

	// Close releases resources.
	Close() error
}
