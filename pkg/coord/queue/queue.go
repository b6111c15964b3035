package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ib-77/rtcoord/pkg/coord"
)

var ErrCapacity = errors.New("queue: capacity must be at least 1")

// MutateFunc is invoked after queue length changes.
type MutateFunc func(length int, capacity int)

// Hooks defines callbacks for queue traffic. They run on the goroutine
// that completed the operation, after the item changed hands.
type Hooks[T any] struct {
	OnEnqueue func(item T)
	OnDequeue func(item T)
}

// Queue is a bounded FIFO. Senders block while it is full and receivers
// while it is empty, each up to their own timeout. Blocked senders are
// accepted in arrival order.
type Queue[T any] struct {
	name   string
	items  chan T
	hooks  Hooks[T]
	mutate MutateFunc
}

type Option[T any] func(q *Queue[T])

func WithHooks[T any](hooks Hooks[T]) Option[T] {
	return func(q *Queue[T]) { q.hooks = hooks }
}

func WithMutate[T any](mutate MutateFunc) Option[T] {
	return func(q *Queue[T]) { q.mutate = mutate }
}

func New[T any](name string, capacity int, opts ...Option[T]) (*Queue[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %s has %d", ErrCapacity, name, capacity)
	}
	q := &Queue[T]{
		name:  name,
		items: make(chan T, capacity),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Name returns the queue name.
func (q *Queue[T]) Name() string {
	return q.name
}

// Capacity returns the fixed maximum length.
func (q *Queue[T]) Capacity() int {
	return cap(q.items)
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Send copies item into the queue. On timeout the item is dropped and the
// result carries coord.ErrTimeout; nothing is retried.
func (q *Queue[T]) Send(ctx context.Context, item T, timeout time.Duration) coord.Result[T] {
	select {
	case q.items <- item:
		q.sent(item)
		return coord.Success(item)
	default:
	}

	if timeout == 0 {
		return coord.Timeout[T](coord.ErrTimeout)
	}

	waitCtx, cancel := coord.Deadline(ctx, timeout)
	defer cancel()

	select {
	case q.items <- item:
		q.sent(item)
		return coord.Success(item)
	case <-waitCtx.Done():
		return coord.Timeout[T](coord.WaitErr(ctx))
	}
}

// Receive removes and returns the oldest item.
func (q *Queue[T]) Receive(ctx context.Context, timeout time.Duration) coord.Result[T] {
	select {
	case item := <-q.items:
		q.received(item)
		return coord.Success(item)
	default:
	}

	if timeout == 0 {
		return coord.Timeout[T](coord.ErrTimeout)
	}

	waitCtx, cancel := coord.Deadline(ctx, timeout)
	defer cancel()

	select {
	case item := <-q.items:
		q.received(item)
		return coord.Success(item)
	case <-waitCtx.Done():
		return coord.Timeout[T](coord.WaitErr(ctx))
	}
}

func (q *Queue[T]) sent(item T) {
	if q.hooks.OnEnqueue != nil {
		q.hooks.OnEnqueue(item)
	}
	q.notify()
}

func (q *Queue[T]) received(item T) {
	if q.hooks.OnDequeue != nil {
		q.hooks.OnDequeue(item)
	}
	q.notify()
}

func (q *Queue[T]) notify() {
	if q.mutate == nil {
		return
	}
	q.mutate(len(q.items), cap(q.items))
}
