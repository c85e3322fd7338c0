package limiter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteBoundsConcurrencyAndKeepsOrder(t *testing.T) {
	l := New(5)
	var running, maxSeen atomic.Int64

	tasks := make([]Task[int], 20)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			now := running.Add(1)
			for {
				prev := maxSeen.Load()
				if now <= prev || maxSeen.CompareAndSwap(prev, now) {
					break
				}
			}
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			running.Add(-1)
			return i * 10, nil
		}
	}

	results := Execute(context.Background(), l, tasks)

	require.Len(t, results, 20)
	for i, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, i*10, res.Value)
	}
	assert.LessOrEqual(t, maxSeen.Load(), int64(5))
	assert.LessOrEqual(t, l.Peak(), 5)
	assert.Equal(t, 0, l.InFlight())
}

func TestRunIsolatesFailuresAndPanics(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[string]{
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", boom },
		func(context.Context) (string, error) { panic("kaboom") },
		func(context.Context) (string, error) { return "d", nil },
	}

	results := Run(context.Background(), tasks, 2)

	require.Len(t, results, 4)
	assert.Equal(t, "a", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorContains(t, results[2].Err, "kaboom")
	assert.Equal(t, "d", results[3].Value)
	assert.NoError(t, results[3].Err)
}

func TestRunDefaultsNonPositiveBound(t *testing.T) {
	assert.Equal(t, DefaultConcurrency, New(0).Max())
	assert.Equal(t, DefaultConcurrency, New(-3).Max())

	results := Run[int](context.Background(), nil, 0)
	assert.Empty(t, results)
}

func TestRunReportsCancellationForUnstartedTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})

	tasks := []Task[int]{
		func(context.Context) (int, error) {
			<-release
			return 1, nil
		},
		func(context.Context) (int, error) { return 2, nil },
		func(context.Context) (int, error) { return 3, nil },
	}

	done := make(chan []Result[int])
	go func() { done <- Run(ctx, tasks, 1) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	close(release)

	results := <-done
	assert.Equal(t, 1, results[0].Value)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
	assert.ErrorIs(t, results[2].Err, context.Canceled)
}
