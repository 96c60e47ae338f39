package singleflight

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SingleCallerRuns(t *testing.T) {
	g := NewGroup()
	outcome, err := g.Do(context.Background(), "k", func() (any, error) {
		return "value", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "value", outcome.Value)
	assert.False(t, outcome.Coalesced)
}

func TestDo_ConcurrentIdenticalCallsInvokeOnce(t *testing.T) {
	g := NewGroup()
	var calls int32
	release := make(chan struct{})

	fn := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const n = 5
	var wg sync.WaitGroup
	results := make([]Outcome, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, err := g.Do(context.Background(), "key", fn)
			require.NoError(t, err)
			results[i] = outcome
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	coalescedCount := 0
	for _, r := range results {
		assert.Equal(t, 42, r.Value)
		if r.Coalesced {
			coalescedCount++
		}
	}
	assert.Equal(t, n-1, coalescedCount)
}

func TestDo_CancellationOfOneWaiterDoesNotAbortComputation(t *testing.T) {
	g := NewGroup()
	var computed int32
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_, _ = g.Do(ctx, "k", func() (any, error) {
			time.Sleep(30 * time.Millisecond)
			atomic.StoreInt32(&computed, 1)
			return nil, nil
		})
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&computed))
}

func TestDo_ErrorPropagates(t *testing.T) {
	g := NewGroup()
	wantErr := assertError("boom")
	outcome, err := g.Do(context.Background(), "k", func() (any, error) {
		return nil, wantErr
	})
	require.NoError(t, err)
	assert.Equal(t, wantErr, outcome.Err)
}

type assertError string

func (e assertError) Error() string { return string(e) }
