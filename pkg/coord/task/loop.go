package task

import (
	"context"
	"math/rand/v2"
	"time"
)

// Loop runs body, then sleeps period plus a random extra of up to jitter,
// until ctx is done. A zero period loops back-to-back.
func Loop(ctx context.Context, period, jitter time.Duration, body func(ctx context.Context)) {
	for {
		if ctx.Err() != nil {
			return
		}

		body(ctx)

		if !Delay(ctx, period+Jitter(jitter)) {
			return
		}
	}
}

// Delay sleeps for d and reports false if ctx ended first.
func Delay(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return rand.N(max + 1)
}
