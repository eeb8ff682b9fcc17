// Package debounce runs lookups for rapidly changing input and keeps only
// the result for the most recent input.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Func performs the lookup for one input.
type Func[T any] func(ctx context.Context, input string) (T, error)

// Result is the outcome of a lookup. Seq identifies the Trigger call that
// produced it.
type Result[T any] struct {
	Seq   uint64
	Input string
	Value T
	Err   error
}

// Task debounces calls to a Func. Each Trigger supersedes the previous one:
// a pending timer is stopped, an in-flight lookup's context is cancelled and
// its result is dropped if it still completes.
type Task[T any] struct {
	delay   time.Duration
	fn      Func[T]
	deliver func(Result[T])

	mu      sync.Mutex
	seq     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	dropped uint64
}

// New creates a Task. deliver receives only results for the latest input.
func New[T any](delay time.Duration, fn Func[T], deliver func(Result[T])) *Task[T] {
	return &Task[T]{delay: delay, fn: fn, deliver: deliver}
}

// Trigger schedules a lookup for input after the debounce delay and returns
// its sequence number.
func (t *Task[T]) Trigger(ctx context.Context, input string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.seq++
	seq := t.seq

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.timer = time.AfterFunc(t.delay, func() {
		v, err := t.fn(runCtx, input)
		if !t.current(seq) || runCtx.Err() != nil {
			t.mu.Lock()
			t.dropped++
			t.mu.Unlock()
			return
		}
		t.deliver(Result[T]{Seq: seq, Input: input, Value: v, Err: err})
	})
	return seq
}

// Stop cancels any pending or in-flight lookup. Its result is never
// delivered.
func (t *Task[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.seq++
}

// Latest returns the sequence number of the most recent Trigger.
func (t *Task[T]) Latest() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

// Dropped returns how many completed lookups were discarded as stale.
func (t *Task[T]) Dropped() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

func (t *Task[T]) current(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return seq == t.seq
}

func (t *Task[T]) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
