// Package queue provides the bounded in-process event queue that feeds the
// matching engine.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close, and by Pop once the queue is
// closed and drained.
var ErrClosed = errors.New("queue: closed")

// DefaultCapacity is used when NewChan is given a non-positive capacity.
const DefaultCapacity = 1024

// Chan is a bounded multi-producer single-consumer FIFO. Producers block
// while it is full.
type Chan[T any] struct {
	items chan T
	done  chan struct{}
	once  sync.Once
}

func NewChan[T any](capacity int) *Chan[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Chan[T]{
		items: make(chan T, capacity),
		done:  make(chan struct{}),
	}
}

// Push appends v, blocking until there is room, ctx is done or the queue
// is closed.
func (q *Chan[T]) Push(ctx context.Context, v T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.items <- v:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes the oldest element, blocking until one is available. After
// Close it keeps returning queued elements until none are left.
func (q *Chan[T]) Pop(ctx context.Context) (T, error) {
	select {
	case v := <-q.items:
		return v, nil
	default:
	}
	var zero T
	select {
	case v := <-q.items:
		return v, nil
	case <-q.done:
		select {
		case v := <-q.items:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops further pushes and wakes a blocked consumer. It is safe to
// call more than once.
func (q *Chan[T]) Close() {
	q.once.Do(func() { close(q.done) })
}

// Len is the number of queued elements.
func (q *Chan[T]) Len() int { return len(q.items) }

func (q *Chan[T]) Cap() int { return cap(q.items) }
