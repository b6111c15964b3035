package app

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ib-77/rtcoord/pkg/coord/message"
	"github.com/ib-77/rtcoord/pkg/coord/queue"
)

// TrafficStats is a snapshot of data queue usage since start.
type TrafficStats struct {
	Enqueued  uint64
	Dequeued  uint64
	HighWater int
	Fulls     uint64
}

// traffic counts data queue activity. Its methods run on the goroutines
// that send and receive, so every field is atomic.
type traffic struct {
	logger *zap.Logger

	enqueued  atomic.Uint64
	dequeued  atomic.Uint64
	highWater atomic.Int64
	fulls     atomic.Uint64
	full      atomic.Bool
}

func (t *traffic) options() []queue.Option[message.Message] {
	return []queue.Option[message.Message]{
		queue.WithHooks(queue.Hooks[message.Message]{
			OnEnqueue: func(message.Message) { t.enqueued.Add(1) },
			OnDequeue: func(message.Message) { t.dequeued.Add(1) },
		}),
		queue.WithMutate[message.Message](t.mutate),
	}
}

// mutate records the high-water mark and warns once each time the queue
// fills up.
func (t *traffic) mutate(length, capacity int) {
	for {
		hw := t.highWater.Load()
		if int64(length) <= hw || t.highWater.CompareAndSwap(hw, int64(length)) {
			break
		}
	}

	if length < capacity {
		t.full.Store(false)
		return
	}
	if !t.full.Swap(true) {
		t.fulls.Add(1)
		t.logger.Warn("Data queue full, senders will time out",
			zap.Int("capacity", capacity))
	}
}

func (t *traffic) stats() TrafficStats {
	return TrafficStats{
		Enqueued:  t.enqueued.Load(),
		Dequeued:  t.dequeued.Load(),
		HighWater: int(t.highWater.Load()),
		Fulls:     t.fulls.Load(),
	}
}
