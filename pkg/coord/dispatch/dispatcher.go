package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ib-77/rtcoord/pkg/coord/message"
)

type Handler func(ctx context.Context, m message.Message)

// Dispatcher routes messages to one handler per kind.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[message.Kind]Handler
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		handlers: make(map[message.Kind]Handler),
		logger:   logger,
	}
}

// Handle registers h for kind, replacing any earlier handler.
func (d *Dispatcher) Handle(kind message.Kind, h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = h
}

// Dispatch runs the handler for m's kind. Messages of a kind without a
// handler are logged as a warning and dropped; Dispatch then returns false.
func (d *Dispatcher) Dispatch(ctx context.Context, m message.Message) bool {
	d.mu.RLock()
	h, ok := d.handlers[m.Kind()]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("Unknown message type",
			zap.Stringer("type", m.Kind()),
			zap.Stringer("id", m.ID),
			zap.Uint64("timestamp", m.Timestamp))
		return false
	}

	h(ctx, m)
	return true
}
