package guard

import (
	"context"
	"time"

	"github.com/ib-77/rtcoord/pkg/coord"
)

// Counter is shared mutable state with no synchronization of its own.
// Correct access goes through a Guarded view; Unchecked exists to show
// what happens without one.
type Counter struct {
	value int
}

func NewCounter(initial int) *Counter {
	return &Counter{value: initial}
}

// Unchecked reads the value without any lock. The result may be stale or
// torn relative to a concurrent writer. It is a data race under the race
// detector.
func (c *Counter) Unchecked() int {
	return c.value
}

// Guarded binds a counter to the mutex that protects it. Delay is held
// between the read and the write of every update.
type Guarded struct {
	counter *Counter
	mutex   *Mutex
	delay   time.Duration
}

func (c *Counter) Guard(m *Mutex, delay time.Duration) *Guarded {
	return &Guarded{counter: c, mutex: m, delay: delay}
}

func (g *Guarded) Mutex() *Mutex {
	return g.mutex
}

// Add reads the value, waits out the processing delay and writes back
// value+delta, all in one critical section. It returns the written value.
func (g *Guarded) Add(ctx context.Context, owner string, timeout time.Duration, delta int) coord.Result[int] {
	return locked(ctx, g.mutex, owner, timeout, func() int {
		temp := g.counter.value + delta
		if g.delay > 0 {
			time.Sleep(g.delay)
		}
		g.counter.value = temp
		return temp
	})
}

func (g *Guarded) Increment(ctx context.Context, owner string, timeout time.Duration) coord.Result[int] {
	return g.Add(ctx, owner, timeout, 1)
}

func (g *Guarded) Decrement(ctx context.Context, owner string, timeout time.Duration) coord.Result[int] {
	return g.Add(ctx, owner, timeout, -1)
}

// Read returns the value as of the latest completed update.
func (g *Guarded) Read(ctx context.Context, owner string, timeout time.Duration) coord.Result[int] {
	return locked(ctx, g.mutex, owner, timeout, func() int {
		return g.counter.value
	})
}

// locked runs body under m and returns its value. A failed acquisition is
// passed through as the result, carrying the acquisition's id and error.
func locked[T any](ctx context.Context, m *Mutex, owner string, timeout time.Duration,
	body func() T) coord.Result[T] {

	h := m.Acquire(ctx, owner, timeout)
	if !h.IsSuccess() {
		return coord.TimeoutFrom[Holder, T](h)
	}
	defer func() {
		_ = m.Release(h.Result())
	}()

	return coord.Success(body())
}
