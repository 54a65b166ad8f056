// Package queue holds the one-directional FIFO used to pass payloads between
// the two sides of the bridge.
package queue

import "context"

// Queue is a bounded FIFO whose Push and Pop block until they can proceed
// or the context is done. Order is preserved for every producer/consumer pair.
type Queue[T any] struct {
	name string
	ch   chan T
}

func New[T any](name string, capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		name: name,
		ch:   make(chan T, capacity),
	}
}

func (q *Queue[T]) Name() string {
	return q.name
}

// Push appends v, waiting for free space if the queue is full.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes the oldest value, waiting until one is available.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Queue[T]) Len() int {
	return len(q.ch)
}

func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}
