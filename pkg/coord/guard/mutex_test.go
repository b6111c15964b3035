package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/rtcoord/pkg/coord"
)

func TestMutex_ExclusiveAndOwned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMutex("i2c")

	first := m.Acquire(ctx, "Task E", time.Second)
	require.True(t, first.IsSuccess())
	assert.Equal(t, "Task E", first.Result().Owner())
	assert.True(t, m.Held())

	second := m.Acquire(ctx, "Task F", 20*time.Millisecond)
	assert.True(t, second.IsTimeout())
	assert.True(t, coord.IsTimeoutError(second.Err()))

	assert.ErrorIs(t, m.Release(Holder{}), coord.ErrNotHolder)
	assert.True(t, m.Held(), "a foreign release must not unlock")

	require.NoError(t, m.Release(first.Result()))
	assert.ErrorIs(t, m.Release(first.Result()), coord.ErrNotHolder, "double release")
	assert.False(t, m.Held())
}

func TestMutex_ZeroTimeoutNeverBlocks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMutex("i2c")
	h := m.Acquire(ctx, "holder", 0)
	require.True(t, h.IsSuccess())

	start := time.Now()
	r := m.Acquire(ctx, "other", 0)
	assert.True(t, r.IsTimeout())
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	require.NoError(t, m.Release(h.Result()))
	assert.True(t, m.Acquire(ctx, "other", 0).IsSuccess())
}

func TestMutex_WaiterGetsLockAfterRelease(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	m := NewMutex("i2c")
	h := m.Acquire(ctx, "first", coord.Forever)
	require.True(t, h.IsSuccess())

	done := make(chan coord.Result[Holder], 1)
	go func() { done <- m.Acquire(ctx, "second", coord.Forever) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, m.Release(h.Result()))

	r := <-done
	require.True(t, r.IsSuccess())
	assert.Equal(t, "second", r.Result().Owner())
}

func TestWithLock_SkipsBodyOnTimeout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMutex("i2c")
	h := m.Acquire(ctx, "holder", 0)
	require.True(t, h.IsSuccess())

	ran := false
	err := m.WithLock(ctx, "reader", 10*time.Millisecond, func() { ran = true })
	assert.True(t, coord.IsTimeoutError(err))
	assert.False(t, ran)
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMutex("i2c")

	assert.Panics(t, func() {
		_ = m.WithLock(ctx, "writer", time.Second, func() { panic("sensor bus fault") })
	})
	assert.False(t, m.Held())
	assert.NoError(t, m.WithLock(ctx, "writer", 0, func() {}))
}

func TestMutex_ContextStop(t *testing.T) {
	t.Parallel()

	m := NewMutex("i2c")
	h := m.Acquire(context.Background(), "holder", 0)
	require.True(t, h.IsSuccess())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var r coord.Result[Holder]
	go func() {
		defer wg.Done()
		r = m.Acquire(ctx, "waiter", coord.Forever)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	wg.Wait()

	assert.True(t, r.IsTimeout())
	assert.True(t, coord.IsStopError(r.Err()))
}
