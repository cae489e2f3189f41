// Package services contains the engine's core orchestration logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/glotdeck/glotdeck/internal/batch"
	"github.com/glotdeck/glotdeck/internal/core/domain"
	"github.com/glotdeck/glotdeck/internal/core/ports/driven"
	"github.com/glotdeck/glotdeck/internal/core/ports/driving"
	"github.com/glotdeck/glotdeck/internal/logger"
	"github.com/glotdeck/glotdeck/internal/ratelimit"
	"github.com/glotdeck/glotdeck/internal/retry"
)

// Ensure Orchestrator implements the interface.
var _ driving.BatchTranslator = (*Orchestrator)(nil)

// Orchestrator coordinates batch translation: cache probing, sub-batch
// dispatch through the rate gate and retry wrapper, and order-preserving
// merge of results. It degrades rather than fails: a fragment whose
// sub-batch exhausted its retries comes back carrying its original text.
type Orchestrator struct {
	provider    driven.TranslationProvider
	cache       driven.TranslationCache
	gate        *ratelimit.Gate
	retryPolicy retry.Policy
}

// NewOrchestrator creates an orchestrator. The cache and gate are
// optional: a nil cache disables memoisation and a nil gate leaves
// outbound calls bounded only by the per-request concurrency.
func NewOrchestrator(
	provider driven.TranslationProvider,
	cache driven.TranslationCache,
	gate *ratelimit.Gate,
	retryPolicy retry.Policy,
) *Orchestrator {
	return &Orchestrator{
		provider:    provider,
		cache:       cache,
		gate:        gate,
		retryPolicy: retryPolicy,
	}
}

// Translate runs one TranslationRequest to completion. The returned
// JobResult always covers every input fragment in input order; an error
// is returned only for request-level problems, never for sub-batch
// failures.
func (o *Orchestrator) Translate(ctx context.Context, req domain.TranslationRequest) (*domain.JobResult, error) {
	start := time.Now()

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	model := req.Model
	if model == "" {
		model = o.provider.ModelName()
	}

	total := len(req.Fragments)
	out := make([]domain.TranslatedFragment, total)

	logger.Info("job %s: translating %d fragments to %q with model %s",
		req.ID, total, req.TargetLanguage, model)

	// Planning: reject invalid fragments, probe the cache, partition the
	// rest into dispatchable work.
	var uncached []int
	cacheHits, rejected := 0, 0
	for i, f := range req.Fragments {
		if req.Rejected(f) {
			out[i] = fallbackFragment(f)
			rejected++
			continue
		}
		if translated, ok := o.cacheGet(ctx, f, req.TargetLanguage, model); ok {
			out[i] = domain.TranslatedFragment{
				ID:         f.ID,
				Original:   f.Original,
				Translated: translated,
				Source:     domain.SourceCache,
			}
			cacheHits++
			continue
		}
		uncached = append(uncached, i)
	}

	logger.Debug("job %s: %d cache hits, %d rejected, %d to translate",
		req.ID, cacheHits, rejected, len(uncached))

	subBatches := chunk(uncached, req.BatchSize)

	// Progress bookkeeping. A fragment is "completed" once its outcome
	// is settled, whatever that outcome was. Emission is serialised so
	// percentages are monotonically non-decreasing; the 100% event is
	// emitted exactly once, at completion.
	var progressMu sync.Mutex
	settled := cacheHits + rejected
	emit := func(p domain.Progress) {
		if req.OnProgress != nil {
			req.OnProgress(p)
		}
	}
	if len(subBatches) > 0 && settled > 0 {
		emit(progressOf(settled, total))
	}

	// Dispatching: each sub-batch goes through the rate gate, the retry
	// wrapper and the provider; on success the cache is populated before
	// the merge, so a later sub-batch failure cannot lose cache coherency.
	outcome := batch.Process(ctx, subBatches, func(callCtx context.Context, index int, sb []int) (map[int]string, error) {
		return o.translateSubBatch(callCtx, req, model, index, sb)
	}, batch.Options{
		Concurrency:     req.Concurrency,
		ContinueOnError: true,
		MinSuccessRate:  req.MinSuccessRate,
		OnItemSettled: func(index int, err error) {
			progressMu.Lock()
			defer progressMu.Unlock()
			settled += len(subBatches[index])
			if err != nil {
				logger.Warn("job %s: sub-batch %d failed: %v", req.ID, index, err)
			}
			if settled < total {
				emit(progressOf(settled, total))
			}
		},
	})

	// Merging: fold translated sub-batches back into input order and
	// degrade everything else to the original text.
	apiCount := 0
	for _, s := range outcome.Successes {
		for idx, translated := range s.Value {
			f := req.Fragments[idx]
			out[idx] = domain.TranslatedFragment{
				ID:         f.ID,
				Original:   f.Original,
				Translated: translated,
				Source:     domain.SourceAPI,
			}
			apiCount++
		}
	}
	for i := range out {
		if out[i].ID == "" {
			out[i] = fallbackFragment(req.Fragments[i])
		}
	}

	eligible := total - rejected
	successRate := 1.0
	if eligible > 0 {
		successRate = float64(cacheHits+apiCount) / float64(eligible)
	}

	result := &domain.JobResult{
		ID:            req.ID,
		Fragments:     out,
		SuccessRate:   successRate,
		Succeeded:     successRate >= req.MinSuccessRate,
		CacheHits:     cacheHits,
		FallbackCount: total - cacheHits - apiCount,
		RejectedCount: rejected,
		Cancelled:     outcome.Cancelled,
		Elapsed:       time.Since(start),
	}

	emit(progressOf(total, total))

	logger.Info("job %s: done in %s (rate %.2f, %d fallback, cancelled=%v)",
		req.ID, result.Elapsed.Round(time.Millisecond), result.SuccessRate,
		result.FallbackCount, result.Cancelled)

	return result, nil
}

// translateSubBatch is the per-sub-batch worker: gate, retry, provider
// call, response mapping and cache population. sb holds input indexes;
// the returned map is keyed by those indexes.
func (o *Orchestrator) translateSubBatch(ctx context.Context, req domain.TranslationRequest, model string, index int, sb []int) (map[int]string, error) {
	if o.gate != nil {
		release, err := o.gate.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire rate gate: %w", err)
		}
		defer release()
	}

	fragments := make([]domain.Fragment, len(sb))
	for k, idx := range sb {
		fragments[k] = req.Fragments[idx]
	}

	job := driven.BatchJob{
		Fragments:      fragments,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Model:          req.Model,
	}

	items, err := retry.Do(ctx, o.retryPolicy, func(ctx context.Context) ([]driven.BatchItem, error) {
		items, err := o.provider.TranslateBatch(ctx, job)
		if err != nil && o.gate != nil && errors.Is(err, domain.ErrRateLimited) {
			// Pause new sub-batch starts; the provider told us to back off.
			o.gate.RecordRateLimit(0)
		}
		return items, err
	},
		retry.WithClassifier(domain.Retryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Debug("job %s: sub-batch %d attempt %d failed, retrying in %s: %v",
				req.ID, index, attempt, delay, err)
		}),
	)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]string, len(items))
	for _, item := range items {
		byID[item.ID] = item.Translated
	}

	resolved := make(map[int]string, len(sb))
	for _, idx := range sb {
		f := req.Fragments[idx]
		translated, ok := byID[f.ID]
		if !ok {
			// The provider contract forbids short results, but a broken
			// adapter must fail the sub-batch rather than drop a fragment.
			return nil, fmt.Errorf("%w: fragment %q missing from result", domain.ErrIncompleteResponse, f.ID)
		}
		resolved[idx] = translated
		o.cacheSet(ctx, f, req.TargetLanguage, model, translated)
	}

	return resolved, nil
}

// cacheGet probes the cache, failing open: any store error is a miss.
func (o *Orchestrator) cacheGet(ctx context.Context, f domain.Fragment, lang, model string) (string, bool) {
	if o.cache == nil {
		return "", false
	}
	translated, ok, err := o.cache.Get(ctx, domain.CacheKey(f.Original, lang, model))
	if err != nil {
		logger.Warn("cache get failed, treating as miss: %v", err)
		return "", false
	}
	return translated, ok
}

// cacheSet populates the cache, failing open: a store error only costs
// a future cache miss.
func (o *Orchestrator) cacheSet(ctx context.Context, f domain.Fragment, lang, model, translated string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, domain.CacheKey(f.Original, lang, model), translated); err != nil {
		logger.Warn("cache set failed: %v", err)
	}
}

// chunk splits indexes into contiguous groups of at most size.
func chunk(indexes []int, size int) [][]int {
	if len(indexes) == 0 {
		return nil
	}
	out := make([][]int, 0, (len(indexes)+size-1)/size)
	for start := 0; start < len(indexes); start += size {
		end := start + size
		if end > len(indexes) {
			end = len(indexes)
		}
		out = append(out, indexes[start:end])
	}
	return out
}

func progressOf(completed, total int) domain.Progress {
	pct := 100.0
	if total > 0 {
		pct = float64(completed) / float64(total) * 100
	}
	return domain.Progress{
		CompletedFragments: completed,
		TotalFragments:     total,
		Percentage:         pct,
	}
}

func fallbackFragment(f domain.Fragment) domain.TranslatedFragment {
	return domain.TranslatedFragment{
		ID:         f.ID,
		Original:   f.Original,
		Translated: f.Original,
		Source:     domain.SourceFallback,
	}
}
