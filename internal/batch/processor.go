// Package batch runs many independent fallible work items with bounded
// concurrency and collects successes and failures separately. It knows
// nothing about translation; any "accept graceful degradation" workload
// can use it. No successful work is ever discarded, even when the
// overall job misses its success threshold.
package batch

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Options configures a Process call.
type Options struct {
	// Concurrency bounds simultaneously running workers. Values below 1
	// mean sequential execution.
	Concurrency int

	// ContinueOnError keeps dispatching after a worker fails. When
	// false, the first failure stops new dispatches; running workers
	// still finish and their results are kept.
	ContinueOnError bool

	// MinSuccessRate is the fraction of items (0..1) that must succeed
	// for Outcome.Met to be true. Zero accepts any outcome.
	MinSuccessRate float64

	// OnItemSettled, when non-nil, is invoked after each item settles
	// with its index and error (nil on success). Calls are serialised.
	OnItemSettled func(index int, err error)
}

// Success pairs a worker result with the index of the item it came from.
type Success[R any] struct {
	Index int
	Value R
}

// Failure pairs a worker error with the index of the item that failed.
type Failure struct {
	Index int
	Err   error
}

// Outcome aggregates a Process run.
type Outcome[R any] struct {
	// Successes holds settled results in ascending item order.
	Successes []Success[R]

	// Failures holds settled errors in ascending item order.
	Failures []Failure

	// Undispatched lists indexes never handed to a worker, either
	// because the context was cancelled or because a failure stopped
	// dispatch with ContinueOnError disabled.
	Undispatched []int

	// SuccessRate is successes over total items. Undispatched items
	// count against it.
	SuccessRate float64

	// Met reports whether SuccessRate reached Options.MinSuccessRate.
	Met bool

	// Cancelled reports that dispatch stopped due to context cancellation.
	Cancelled bool
}

// Process dispatches worker over items with at most opts.Concurrency in
// flight. Cancellation is checked between dispatches only: workers
// already running are allowed to finish (their work is paid for), which
// is why they receive a context detached from ctx's cancellation.
func Process[T, R any](ctx context.Context, items []T, worker func(ctx context.Context, index int, item T) (R, error), opts Options) Outcome[R] {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		successes []Success[R]
		failures  []Failure
		stopped   bool
	)

	settle := func(index int, value R, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures = append(failures, Failure{Index: index, Err: err})
			if !opts.ContinueOnError {
				stopped = true
			}
		} else {
			successes = append(successes, Success[R]{Index: index, Value: value})
		}
		if opts.OnItemSettled != nil {
			opts.OnItemSettled(index, err)
		}
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	callCtx := context.WithoutCancel(ctx)

	outcome := Outcome[R]{}
	next := 0

dispatch:
	for ; next < len(items); next++ {
		if ctx.Err() != nil {
			outcome.Cancelled = true
			break
		}
		// Blocks until a worker slot frees up; bails out on cancellation
		// so no new item starts after the caller gave up.
		if err := sem.Acquire(ctx, 1); err != nil {
			outcome.Cancelled = true
			break
		}

		mu.Lock()
		halt := stopped
		mu.Unlock()
		if halt {
			sem.Release(1)
			break dispatch
		}

		wg.Add(1)
		go func(index int, item T) {
			defer wg.Done()
			defer sem.Release(1)
			value, err := worker(callCtx, index, item)
			settle(index, value, err)
		}(next, items[next])
	}

	wg.Wait()

	for i := next; i < len(items); i++ {
		outcome.Undispatched = append(outcome.Undispatched, i)
	}

	sort.Slice(successes, func(i, j int) bool { return successes[i].Index < successes[j].Index })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })

	outcome.Successes = successes
	outcome.Failures = failures
	outcome.SuccessRate = 1.0
	if len(items) > 0 {
		outcome.SuccessRate = float64(len(successes)) / float64(len(items))
	}
	outcome.Met = outcome.SuccessRate >= opts.MinSuccessRate

	return outcome
}
