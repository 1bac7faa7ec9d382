// Package task runs one remote operation at a time per triggering control.
// A second call while one is outstanding is rejected, which is what lets the
// dashboard render the control as disabled.
package task

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrInFlight is returned when Run is called while a previous run is still going
var ErrInFlight = errors.New("a request is already in progress")

// Outcome is the settled result of a run
type Outcome[T any] struct {
	Value T
	Err   error
	// Elapsed is the wall time of the operation
	Elapsed time.Duration
}

// Task guards a single kind of operation. The zero value is not usable; use New.
type Task[T any] struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// New returns a task that bounds each run by timeout. A zero timeout leaves
// the caller's context as the only deadline.
func New[T any](timeout time.Duration) *Task[T] {
	return &Task[T]{
		sem:     semaphore.NewWeighted(1),
		timeout: timeout,
	}
}

// Run executes fn unless another run is in flight, in which case it returns
// an Outcome carrying ErrInFlight without calling fn.
func (t *Task[T]) Run(ctx context.Context, fn func(context.Context) (T, error)) Outcome[T] {
	if !t.sem.TryAcquire(1) {
		return Outcome[T]{Err: ErrInFlight}
	}
	defer t.sem.Release(1)

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(ctx)
	return Outcome[T]{Value: v, Err: err, Elapsed: time.Since(start)}
}

// InFlight reports whether a run is currently executing
func (t *Task[T]) InFlight() bool {
	if !t.sem.TryAcquire(1) {
		return true
	}
	t.sem.Release(1)
	return false
}
