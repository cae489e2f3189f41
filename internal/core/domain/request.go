package domain

import (
	"fmt"
	"strings"
)

// SourceLanguageAuto lets the provider detect the source language.
const SourceLanguageAuto = "auto"

// Default request parameters. Conservative, tuned for provider quotas:
// larger sub-batches reduce round-trips but widen the blast radius of a
// single failure.
const (
	DefaultBatchSize      = 10
	DefaultConcurrency    = 3
	DefaultMinSuccessRate = 0.7
	DefaultMaxFragmentLen = 20000

	// MaxBatchSize caps how many fragments may share one provider call.
	MaxBatchSize = 100
)

// TranslationRequest describes one orchestration call. It is created
// per call and never persisted by the engine.
type TranslationRequest struct {
	// ID identifies the request in logs and progress events.
	// Assigned by the orchestrator when empty.
	ID string

	// Fragments is the ordered list of units to translate.
	Fragments []Fragment

	// TargetLanguage is the language to translate into (required).
	TargetLanguage string

	// SourceLanguage is the language to translate from, or
	// SourceLanguageAuto to let the provider detect it.
	SourceLanguage string

	// Model is the provider model identifier. Empty means the
	// provider's configured default.
	Model string

	// BatchSize is the maximum number of fragments per sub-batch.
	BatchSize int

	// Concurrency bounds how many sub-batches are in flight at once.
	Concurrency int

	// MinSuccessRate is the fraction of eligible fragments that must
	// resolve via cache or API for the job to be reported successful.
	// Policy, not structure: missing it never discards partial results.
	MinSuccessRate float64

	// MaxFragmentLen rejects oversized fragments before dispatch.
	MaxFragmentLen int

	// OnProgress, when non-nil, receives a progress event after every
	// sub-batch settles. Events are emitted serially.
	OnProgress ProgressFunc
}

// ApplyDefaults fills zero-valued tunables with the package defaults.
func (r *TranslationRequest) ApplyDefaults() {
	if r.SourceLanguage == "" {
		r.SourceLanguage = SourceLanguageAuto
	}
	if r.BatchSize <= 0 {
		r.BatchSize = DefaultBatchSize
	}
	if r.BatchSize > MaxBatchSize {
		r.BatchSize = MaxBatchSize
	}
	if r.Concurrency <= 0 {
		r.Concurrency = DefaultConcurrency
	}
	if r.MinSuccessRate <= 0 {
		r.MinSuccessRate = DefaultMinSuccessRate
	}
	if r.MinSuccessRate > 1 {
		r.MinSuccessRate = 1
	}
	if r.MaxFragmentLen <= 0 {
		r.MaxFragmentLen = DefaultMaxFragmentLen
	}
}

// Validate checks request-level preconditions. Per-fragment problems
// (empty or oversized text) are not validated here; they degrade to
// fallback output for the offending fragment only.
func (r *TranslationRequest) Validate() error {
	if strings.TrimSpace(r.TargetLanguage) == "" {
		return fmt.Errorf("%w: target language is required", ErrInvalidRequest)
	}
	if len(r.Fragments) == 0 {
		return fmt.Errorf("%w: no fragments", ErrInvalidRequest)
	}

	seen := make(map[string]struct{}, len(r.Fragments))
	for i, f := range r.Fragments {
		if f.ID == "" {
			return fmt.Errorf("%w: fragment %d has no id", ErrInvalidRequest, i)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateFragment, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// Rejected reports whether a fragment must be excluded from dispatch.
// Empty (after trimming) and oversized fragments are never sent to the
// provider; they come back as fallback output.
func (r *TranslationRequest) Rejected(f Fragment) bool {
	if strings.TrimSpace(f.Original) == "" {
		return true
	}
	return len(f.Original) > r.MaxFragmentLen
}
