package domain

import "time"

// Progress is a snapshot of job advancement. Percentages form a
// non-decreasing sequence and reach exactly 100 once, at completion.
type Progress struct {
	// CompletedFragments counts fragments whose outcome is settled,
	// whether served from cache, translated, rejected or degraded.
	CompletedFragments int

	// TotalFragments is the size of the request.
	TotalFragments int

	// Percentage is CompletedFragments over TotalFragments, 0-100.
	Percentage float64
}

// ProgressFunc receives progress events. The transport behind it
// (polling endpoint, push channel) is the embedding application's concern.
type ProgressFunc func(Progress)

// JobResult is the outcome of one TranslationRequest. The engine never
// discards completed work: Fragments always covers the full input, in
// input order, regardless of partial failures or cancellation.
type JobResult struct {
	// ID is the request ID (generated when the caller left it empty).
	ID string

	// Fragments holds exactly one entry per input fragment, in input order.
	Fragments []TranslatedFragment

	// SuccessRate is the fraction of fragments resolved by cache or API,
	// over the fragments eligible for translation. Rejected fragments do
	// not count against it.
	SuccessRate float64

	// Succeeded reports whether SuccessRate met the request's
	// MinSuccessRate threshold. A false value still carries every
	// partial success in Fragments.
	Succeeded bool

	// CacheHits counts fragments served from the translation cache.
	CacheHits int

	// FallbackCount counts fragments carrying their original text
	// because translation failed, was cancelled or was rejected.
	FallbackCount int

	// RejectedCount counts fragments excluded before dispatch
	// (empty or oversized text).
	RejectedCount int

	// Cancelled reports that the request's context was cancelled before
	// every sub-batch could be dispatched.
	Cancelled bool

	// Elapsed is the wall-clock duration of the job.
	Elapsed time.Duration
}
