package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ib-77/rtcoord/pkg/coord"
)

// Holder identifies one successful acquisition. Only the holder returned
// by Acquire can release the lock it took.
type Holder struct {
	id    uuid.UUID
	owner string
}

func (h Holder) Owner() string {
	return h.owner
}

// Mutex is a binary lock with ownership and timed acquisition. Waiters are
// served in arrival order.
type Mutex struct {
	name string
	sem  *semaphore.Weighted

	mu     sync.Mutex
	holder uuid.UUID
}

func NewMutex(name string) *Mutex {
	return &Mutex{
		name: name,
		sem:  semaphore.NewWeighted(1),
	}
}

func (m *Mutex) Name() string {
	return m.name
}

// Acquire takes the lock for owner, waiting at most timeout.
func (m *Mutex) Acquire(ctx context.Context, owner string, timeout time.Duration) coord.Result[Holder] {
	if timeout == 0 {
		if !m.sem.TryAcquire(1) {
			return coord.Timeout[Holder](fmt.Errorf("%s: %w", m.name, coord.ErrTimeout))
		}
		return coord.Success(m.own(owner))
	}

	waitCtx, cancel := coord.Deadline(ctx, timeout)
	defer cancel()

	if err := m.sem.Acquire(waitCtx, 1); err != nil {
		return coord.Timeout[Holder](fmt.Errorf("%s: %w", m.name, coord.WaitErr(ctx)))
	}
	return coord.Success(m.own(owner))
}

// Release gives the lock back. It fails with coord.ErrNotHolder when h is
// not the current holder, leaving the lock untouched.
func (m *Mutex) Release(h Holder) error {
	m.mu.Lock()
	if h.id == uuid.Nil || h.id != m.holder {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w (%q)", m.name, coord.ErrNotHolder, h.owner)
	}
	m.holder = uuid.Nil
	m.mu.Unlock()

	m.sem.Release(1)
	return nil
}

// WithLock runs body while holding the lock. If the lock cannot be taken
// within timeout, body is skipped and the timeout error returned. The lock
// is released on every exit from body, panics included.
func (m *Mutex) WithLock(ctx context.Context, owner string, timeout time.Duration, body func()) error {
	r := m.Acquire(ctx, owner, timeout)
	if !r.IsSuccess() {
		return r.Err()
	}
	defer func() {
		_ = m.Release(r.Result())
	}()

	body()
	return nil
}

// Held reports whether some task currently holds the lock.
func (m *Mutex) Held() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holder != uuid.Nil
}

func (m *Mutex) own(owner string) Holder {
	h := Holder{id: uuid.New(), owner: owner}
	m.mu.Lock()
	m.holder = h.id
	m.mu.Unlock()
	return h
}
