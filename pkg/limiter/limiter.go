// Package limiter runs independent tasks with a bounded number in flight.
package limiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is used when a non-positive bound is supplied.
const DefaultConcurrency = 5

// Task is a unit of work executed by Run.
type Task[T any] func(ctx context.Context) (T, error)

// Result holds the outcome of one task. Err is set when the task failed, panicked
// or never started because ctx was cancelled.
type Result[T any] struct {
	Value T
	Err   error
}

// Limiter bounds concurrent task execution and exposes the live in-flight count.
type Limiter struct {
	max      int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

// New builds a Limiter allowing at most maxConcurrent tasks at once.
func New(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultConcurrency
	}
	return &Limiter{max: int64(maxConcurrent)}
}

// Max returns the configured bound.
func (l *Limiter) Max() int {
	return int(l.max)
}

// InFlight returns the number of tasks currently executing.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Peak returns the highest in-flight count observed so far.
func (l *Limiter) Peak() int {
	return int(l.peak.Load())
}

// Run executes tasks through a fresh Limiter. See (*Limiter).Run.
func Run[T any](ctx context.Context, tasks []Task[T], maxConcurrent int) []Result[T] {
	return Execute(ctx, New(maxConcurrent), tasks)
}

// Execute starts every task, never more than l.Max() at a time, and returns the
// results in input order. One task failing does not affect its siblings.
func Execute[T any](ctx context.Context, l *Limiter, tasks []Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	sem := semaphore.NewWeighted(l.max)
	var wg sync.WaitGroup
	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(tasks); j++ {
				results[j].Err = err
			}
			break
		}
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = invoke(ctx, l, task)
		}(i, task)
	}
	wg.Wait()
	return results
}

func invoke[T any](ctx context.Context, l *Limiter, task Task[T]) (res Result[T]) {
	current := l.inFlight.Add(1)
	for {
		peak := l.peak.Load()
		if current <= peak || l.peak.CompareAndSwap(peak, current) {
			break
		}
	}
	defer l.inFlight.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()

	value, err := task(ctx)
	return Result[T]{Value: value, Err: err}
}
