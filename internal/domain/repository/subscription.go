package repository

import (
	"context"
	"sync"
	"sync/atomic"
)

// Unsubscribe stops a live subscription. A callback already past its closed
// check may still run once after it returns; none starts after that. The
// store-side teardown may also still be in flight. Safe to call twice.
type Unsubscribe func()

// Listener guards callback delivery for one live subscription. Adapters run
// their watch loop in a goroutine and hand each snapshot to Deliver.
type Listener[T any] struct {
	mu     sync.Mutex
	closed atomic.Bool
	fn     func(T)
	cancel context.CancelFunc
}

func NewListener[T any](fn func(T), cancel context.CancelFunc) *Listener[T] {
	return &Listener[T]{fn: fn, cancel: cancel}
}

// Deliver invokes the callback unless the listener was closed. Snapshots are
// delivered one at a time, in the order Deliver is called. Close does not take
// mu, so a Close racing with Deliver can land while fn runs; callers that tear
// down state on close must guard their callback bodies.
func (l *Listener[T]) Deliver(v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Load() {
		return false
	}
	l.fn(v)
	return true
}

func (l *Listener[T]) Closed() bool {
	return l.closed.Load()
}

// Close never waits for a callback in progress, so it may be called from
// inside one.
func (l *Listener[T]) Close() {
	if l.closed.Swap(true) {
		return
	}
	if l.cancel != nil {
		l.cancel()
	}
}

func (l *Listener[T]) Unsubscribe() Unsubscribe {
	return l.Close
}
