package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ib-77/rtcoord/pkg/coord"
	"github.com/ib-77/rtcoord/pkg/coord/guard"
	"github.com/ib-77/rtcoord/pkg/coord/message"
	"github.com/ib-77/rtcoord/pkg/coord/queue"
)

type Options struct {
	Owner string
	// ReceiveTimeout bounds each wait for a message. Zero means Forever,
	// since a polling consumer would spin.
	ReceiveTimeout time.Duration
	// Mutex, when set, is held around every dispatch.
	Mutex        *guard.Mutex
	MutexTimeout time.Duration
}

type Handlers struct {
	OnDispatched func(ctx context.Context, m message.Message, handled bool)
	// OnSkipped runs for a message that was received but not dispatched
	// because the mutex could not be taken in time.
	OnSkipped func(ctx context.Context, m message.Message, err error)
	OnStop    func(ctx context.Context, q *queue.Queue[message.Message])
}

// Locomotive is the consumer loop: receive the oldest message, dispatch it
// by kind, repeat. It returns only when ctx is done. wg may be nil.
func Locomotive(ctx context.Context, q *queue.Queue[message.Message], d *Dispatcher,
	opts Options, handlers Handlers, logger *zap.Logger, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.ReceiveTimeout
	if timeout == 0 {
		timeout = coord.Forever
	}

	for {
		if ctx.Err() != nil {
			if handlers.OnStop != nil {
				handlers.OnStop(ctx, q)
			}
			return
		}

		r := q.Receive(ctx, timeout)
		if !r.IsSuccess() {
			if !coord.IsStopError(r.Err()) {
				logger.Debug("no message within timeout", zap.Error(r.Err()))
			}
			continue
		}
		m := r.Result()

		if opts.Mutex == nil {
			handled := d.Dispatch(ctx, m)
			if handlers.OnDispatched != nil {
				handlers.OnDispatched(ctx, m, handled)
			}
			continue
		}

		var handled bool
		err := opts.Mutex.WithLock(ctx, opts.Owner, opts.MutexTimeout, func() {
			handled = d.Dispatch(ctx, m)
		})
		if err != nil {
			logger.Warn("mutex busy, message dropped",
				zap.Stringer("type", m.Kind()),
				zap.Error(err))
			if handlers.OnSkipped != nil {
				handlers.OnSkipped(ctx, m, err)
			}
			continue
		}
		if handlers.OnDispatched != nil {
			handlers.OnDispatched(ctx, m, handled)
		}
	}
}
