package readiness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ib-77/rtcoord/pkg/coord"
)

var ErrEmptyMask = errors.New("readiness: wait on an empty mask")

// WaitOptions selects how a waiter matches its required mask.
type WaitOptions struct {
	// MatchAll requires every bit of the mask; otherwise any bit suffices.
	MatchAll bool
	// ClearOnExit clears the required bits as part of releasing the waiter.
	ClearOnExit bool
}

// Group is a bitset that tasks set and wait on. The zero value is not
// usable; create one with NewGroup.
type Group struct {
	mu      sync.Mutex
	bits    Bits
	changed chan struct{}
}

func NewGroup() *Group {
	return &Group{changed: make(chan struct{})}
}

// Set ORs mask into the group, wakes all waiters and returns the bits
// after the update.
func (g *Group) Set(mask Bits) Bits {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.bits |= mask
	if mask != 0 {
		g.broadcast()
	}
	return g.bits
}

// Clear removes mask from the group and returns the bits before clearing.
func (g *Group) Clear(mask Bits) Bits {
	g.mu.Lock()
	defer g.mu.Unlock()

	before := g.bits
	g.bits &^= mask
	return before
}

func (g *Group) Get() Bits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bits
}

// Wait blocks until required is satisfied under opts or timeout elapses.
// The value of the returned result is the bitset observed when the waiter
// was released, before any clear-on-exit took effect.
func (g *Group) Wait(ctx context.Context, required Bits, opts WaitOptions,
	timeout time.Duration) coord.Result[Bits] {

	if required == 0 {
		return coord.Fail[Bits](ErrEmptyMask)
	}

	snapshot, changed, ok := g.try(required, opts)
	if ok {
		return coord.Success(snapshot)
	} else if timeout == 0 {
		return coord.TimeoutWith(coord.ErrTimeout, snapshot)
	}

	waitCtx, cancel := coord.Deadline(ctx, timeout)
	defer cancel()

	for {
		select {
		case <-changed:
		case <-waitCtx.Done():
			return coord.TimeoutWith(coord.WaitErr(ctx), g.Get())
		}

		if snapshot, changed, ok = g.try(required, opts); ok {
			return coord.Success(snapshot)
		}
	}
}

// WaitAll waits for every bit of required without clearing them.
func (g *Group) WaitAll(ctx context.Context, required Bits, timeout time.Duration) coord.Result[Bits] {
	return g.Wait(ctx, required, WaitOptions{MatchAll: true}, timeout)
}

// WaitAny waits for any bit of required without clearing it.
func (g *Group) WaitAny(ctx context.Context, required Bits, timeout time.Duration) coord.Result[Bits] {
	return g.Wait(ctx, required, WaitOptions{}, timeout)
}

// try evaluates the condition and, when it holds, applies clear-on-exit
// under the same lock. Otherwise it hands back the channel that the next
// Set will close.
func (g *Group) try(required Bits, opts WaitOptions) (Bits, <-chan struct{}, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot := g.bits
	if !satisfied(snapshot, required, opts.MatchAll) {
		return snapshot, g.changed, false
	}
	if opts.ClearOnExit {
		g.bits &^= required
	}
	return snapshot, nil, true
}

// broadcast must be called with mu held.
func (g *Group) broadcast() {
	close(g.changed)
	g.changed = make(chan struct{})
}

func satisfied(b, required Bits, matchAll bool) bool {
	if matchAll {
		return Has(b, required)
	}
	return HasAny(b, required)
}
