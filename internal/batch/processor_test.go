package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSucceed(t *testing.T) {
	items := []int{1, 2, 3, 4}
	outcome := Process(context.Background(), items, func(_ context.Context, _ int, item int) (int, error) {
		return item * 10, nil
	}, Options{Concurrency: 2, ContinueOnError: true})

	require.Len(t, outcome.Successes, 4)
	assert.Empty(t, outcome.Failures)
	assert.Empty(t, outcome.Undispatched)
	assert.Equal(t, 1.0, outcome.SuccessRate)
	assert.True(t, outcome.Met)
	assert.False(t, outcome.Cancelled)

	for i, s := range outcome.Successes {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, items[i]*10, s.Value)
	}
}

func TestPartialFailureKeepsSuccesses(t *testing.T) {
	boom := errors.New("boom")
	outcome := Process(context.Background(), []int{0, 1, 2, 3, 4}, func(_ context.Context, index int, _ int) (string, error) {
		if index%2 == 1 {
			return "", boom
		}
		return fmt.Sprintf("ok-%d", index), nil
	}, Options{Concurrency: 3, ContinueOnError: true, MinSuccessRate: 0.5})

	assert.Len(t, outcome.Successes, 3)
	assert.Len(t, outcome.Failures, 2)
	assert.InDelta(t, 0.6, outcome.SuccessRate, 1e-9)
	assert.True(t, outcome.Met)

	for _, f := range outcome.Failures {
		assert.ErrorIs(t, f.Err, boom)
	}
}

func TestThresholdVerdict(t *testing.T) {
	worker := func(_ context.Context, index int, _ int) (int, error) {
		if index < 2 {
			return 0, errors.New("fail")
		}
		return index, nil
	}

	// 3/5 succeed: below 0.7, above 0.5.
	strict := Process(context.Background(), make([]int, 5), worker, Options{ContinueOnError: true, MinSuccessRate: 0.7})
	assert.False(t, strict.Met)
	assert.Len(t, strict.Successes, 3, "partial successes survive a failed verdict")

	lenient := Process(context.Background(), make([]int, 5), worker, Options{ContinueOnError: true, MinSuccessRate: 0.5})
	assert.True(t, lenient.Met)
}

func TestStopOnFirstErrorWhenNotContinuing(t *testing.T) {
	var dispatched atomic.Int64
	outcome := Process(context.Background(), make([]int, 10), func(_ context.Context, index int, _ int) (int, error) {
		dispatched.Add(1)
		if index == 0 {
			return 0, errors.New("first fails")
		}
		return index, nil
	}, Options{Concurrency: 1, ContinueOnError: false})

	assert.EqualValues(t, 1, dispatched.Load())
	assert.Len(t, outcome.Failures, 1)
	assert.Len(t, outcome.Undispatched, 9)
	assert.False(t, outcome.Met)
}

func TestConcurrencyBound(t *testing.T) {
	const limit = 3
	var running, peak atomic.Int64

	Process(context.Background(), make([]int, 30), func(_ context.Context, _ int, _ int) (int, error) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		return 0, nil
	}, Options{Concurrency: limit, ContinueOnError: true})

	assert.LessOrEqual(t, peak.Load(), int64(limit))
}

func TestCancellationStopsDispatchButFinishesInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	firstRunning := make(chan struct{})
	proceed := make(chan struct{})

	done := make(chan Outcome[int])
	go func() {
		done <- Process(ctx, make([]int, 5), func(workerCtx context.Context, index int, _ int) (int, error) {
			if index == 0 {
				close(firstRunning)
				<-proceed
				// In-flight work must not observe the caller's cancellation.
				if workerCtx.Err() != nil {
					return 0, workerCtx.Err()
				}
			}
			return index, nil
		}, Options{Concurrency: 1, ContinueOnError: true})
	}()

	<-firstRunning
	cancel()
	close(proceed)

	outcome := <-done
	assert.True(t, outcome.Cancelled)
	// Item 0 finished; item 1 may or may not have been dispatched before
	// cancel landed, but the tail is definitely undispatched.
	assert.NotEmpty(t, outcome.Undispatched)
	assert.GreaterOrEqual(t, len(outcome.Successes), 1)
	assert.Equal(t, 5, len(outcome.Successes)+len(outcome.Failures)+len(outcome.Undispatched))
}

func TestOnItemSettledSerialisedAndComplete(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	inCallback := false

	outcome := Process(context.Background(), make([]int, 12), func(_ context.Context, index int, _ int) (int, error) {
		if index%3 == 0 {
			return 0, errors.New("every third")
		}
		return index, nil
	}, Options{Concurrency: 4, ContinueOnError: true, OnItemSettled: func(index int, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.False(t, inCallback, "callback must not run concurrently")
		inCallback = true
		seen[index] = err != nil
		inCallback = false
	}})

	assert.Len(t, seen, 12)
	assert.Len(t, outcome.Failures, 4)
	for index, failed := range seen {
		assert.Equal(t, index%3 == 0, failed)
	}
}

func TestEmptyItems(t *testing.T) {
	outcome := Process(context.Background(), nil, func(_ context.Context, _ int, _ int) (int, error) {
		t.Fatal("worker must not run")
		return 0, nil
	}, Options{MinSuccessRate: 0.9})

	assert.Equal(t, 1.0, outcome.SuccessRate)
	assert.True(t, outcome.Met)
}
