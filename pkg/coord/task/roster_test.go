package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ib-77/rtcoord/pkg/coord/config"
)

var limits = Limits{Cores: 2, MaxPriority: 5, StackBudget: 8192}

func noop(ctx context.Context) error { return nil }

func TestRoster_StartsAllAndCarriesInfo(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	r := NewRoster(limits, nil)

	var (
		mu   sync.Mutex
		seen = map[string]Info{}
	)
	record := func(ctx context.Context) error {
		info, ok := FromContext(ctx)
		assert.True(t, ok)
		mu.Lock()
		seen[info.Name] = info
		mu.Unlock()
		<-ctx.Done()
		return nil
	}

	r.Add(Spec{Name: "SystemMonitor", Priority: 3, Core: config.NoAffinity, Stack: 4096, Run: record})
	r.Add(Spec{Name: "Task E", Priority: 2, Core: 0, Stack: 2048, Run: record})
	r.Add(Spec{Name: "Task F", Priority: 2, Core: 1, Stack: 2048, Run: record})
	require.Equal(t, 3, r.Len())

	require.NoError(t, r.Start(ctx))
	assert.ErrorIs(t, r.Start(ctx), ErrStarted)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, r.Wait())
	assert.Equal(t, Info{Name: "Task F", Priority: 2, Core: 1}, seen["Task F"])
}

func TestRoster_AllOrNothing(t *testing.T) {
	t.Parallel()

	started := make(chan string, 10)
	run := func(ctx context.Context) error {
		started <- NameOr(ctx, "")
		return nil
	}

	r := NewRoster(limits, nil)
	r.Add(Spec{Name: "ok", Priority: 1, Core: 0, Stack: 1024, Run: run})
	r.Add(Spec{Name: "ok", Priority: 1, Core: 0, Stack: 1024, Run: run})
	r.Add(Spec{Name: "", Priority: 9, Core: 2, Stack: 0})
	r.Add(Spec{Name: "huge", Priority: 1, Core: config.NoAffinity, Stack: 1 << 20, Run: run})

	err := r.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate name")
	assert.Contains(t, err.Error(), "priority 9")
	assert.Contains(t, err.Error(), "core 2")
	assert.Contains(t, err.Error(), "exceeds remaining budget")

	assert.ErrorIs(t, r.Wait(), ErrNotReady)
	assert.Empty(t, started)
}

func TestRoster_StartsHighestPriorityFirst(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r := NewRoster(limits, zap.New(core))
	r.Add(Spec{Name: "low", Priority: 1, Core: 0, Stack: 1, Run: noop})
	r.Add(Spec{Name: "high", Priority: 4, Core: 0, Stack: 1, Run: noop})
	r.Add(Spec{Name: "mid", Priority: 2, Core: 0, Stack: 1, Run: noop})

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Wait())

	var order []string
	for _, e := range logs.FilterMessage("task created").All() {
		order = append(order, e.ContextMap()["task"].(string))
	}
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestRoster_WaitReportsTaskError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mountErr := errors.New("no card")
	core, logs := observer.New(zapcore.ErrorLevel)
	r := NewRoster(limits, zap.New(core))
	r.Add(Spec{Name: "SD Card", Priority: 1, Core: 0, Stack: 1,
		Run: func(context.Context) error { return mountErr }})
	survivor := make(chan struct{})
	r.Add(Spec{Name: "Task H", Priority: 1, Core: 1, Stack: 1,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(survivor)
			return nil
		}})

	require.NoError(t, r.Start(ctx))
	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, time.Millisecond)

	select {
	case <-survivor:
		t.Fatal("a failing task must not stop the others")
	default:
	}

	cancel()
	err := r.Wait()
	require.ErrorIs(t, err, mountErr)
	assert.Contains(t, err.Error(), `task "SD Card"`)
	<-survivor
}

func TestLoop_RunsUntilStopped(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var n int
	done := make(chan struct{})
	go func() {
		defer close(done)
		Loop(ctx, time.Millisecond, time.Millisecond, func(context.Context) {
			n++
			if n == 5 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 5, n)
}

func TestDelay_StopsEarly(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Delay(ctx, time.Hour))
	assert.True(t, Delay(context.Background(), 0))
}

func TestJitter_Bounded(t *testing.T) {
	for range 100 {
		j := Jitter(10 * time.Millisecond)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, 10*time.Millisecond)
	}
	assert.Zero(t, Jitter(0))
}

func TestLogger_TagsTask(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithInfo(context.Background(), Info{Name: "Task H", Priority: 1, Core: 1})

	Logger(ctx, zap.New(core)).Info("safe read", zap.Int("value", 3))

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "Task H", e.LoggerName)
	assert.EqualValues(t, 1, e.ContextMap()["core"])
	assert.Equal(t, "outside", NameOr(context.Background(), "outside"))
}
