package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	done := make(chan Job, 1)
	q := NewQueue("test", func(_ context.Context, job Job) error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "1"}))

	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(time.Second):
		t.Fatal("job was not retried to success")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	q := NewQueue("test", func(context.Context, Job) error {
		calls.Add(1)
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueueRejectsWhenNotRunning(t *testing.T) {
	q := NewQueue("test", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrQueueClosed)

	q.Start(context.Background())
	assert.True(t, q.Running())
	q.Stop(context.Background())
	assert.False(t, q.Running())
	assert.ErrorIs(t, q.Enqueue(Job{}), ErrQueueClosed)
}

func TestQueueStopDrainsBufferedJobs(t *testing.T) {
	var handled atomic.Int32
	release := make(chan struct{})
	q := NewQueue("test", func(context.Context, Job) error {
		<-release
		handled.Add(1)
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8})
	q.Start(context.Background())

	for i := 0; i < 4; i++ {
		require.NoError(t, q.Enqueue(Job{}))
	}
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Stop(ctx)

	assert.GreaterOrEqual(t, handled.Load(), int32(3))
}

func TestQueueStopLetsInFlightJobFinish(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	result := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		close(started)
		<-release
		result <- ctx.Err()
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "upsert"}))
	<-started

	stopped := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		q.Stop(ctx)
		close(stopped)
	}()

	assert.Eventually(t, func() bool { return !q.Running() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, q.Enqueue(Job{ID: "late"}), ErrQueueClosed)
	close(release)

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("in-flight job did not complete")
	}
	<-stopped
}

func TestQueueStopCancelsJobsPastGracePeriod(t *testing.T) {
	started := make(chan struct{})
	result := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		close(started)
		<-ctx.Done()
		result <- ctx.Err()
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "stuck"}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	q.Stop(ctx)

	assert.ErrorIs(t, <-result, context.Canceled)
}

func TestQueueHandlersIgnoreParentCancellation(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	result := make(chan error, 1)
	q := NewQueue("test", func(ctx context.Context, _ Job) error {
		result <- ctx.Err()
		return nil
	}, QueueConfig{Workers: 1})
	q.Start(parent)
	cancelParent()

	require.NoError(t, q.Enqueue(Job{ID: "after-signal"}))
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("job was not handled")
	}
	q.Stop(context.Background())
}
