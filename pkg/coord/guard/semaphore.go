package guard

import (
	"context"
	"time"

	"github.com/ib-77/rtcoord/pkg/coord"
)

// Binary is a signalling semaphore: Give makes one Take succeed. Gives do
// not accumulate.
type Binary struct {
	token chan struct{}
}

func NewBinary() *Binary {
	return &Binary{token: make(chan struct{}, 1)}
}

// Give signals the semaphore and reports whether it was previously empty.
func (b *Binary) Give() bool {
	select {
	case b.token <- struct{}{}:
		return true
	default:
		return false
	}
}

func (b *Binary) Take(ctx context.Context, timeout time.Duration) coord.Result[struct{}] {
	select {
	case <-b.token:
		return coord.Success(struct{}{})
	default:
	}

	if timeout == 0 {
		return coord.Timeout[struct{}](coord.ErrTimeout)
	}

	waitCtx, cancel := coord.Deadline(ctx, timeout)
	defer cancel()

	select {
	case <-b.token:
		return coord.Success(struct{}{})
	case <-waitCtx.Done():
		return coord.Timeout[struct{}](coord.WaitErr(ctx))
	}
}
