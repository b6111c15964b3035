package coord

import (
	"time"

	"github.com/google/uuid"
)

type Result[T any] struct {
	id        uuid.UUID
	createdAt time.Time
	result    T
	err       error
	isSuccess bool
	isTimeout bool
	hasResult bool
}

func Success[T any](r T) Result[T] {
	return Result[T]{
		result:    r,
		isSuccess: true,
		createdAt: time.Now().UTC(),
		hasResult: true,
		id:        uuid.New(),
	}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{
		err:       err,
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

// Timeout reports a wait that ended before its condition held.
func Timeout[T any](err error) Result[T] {
	if err == nil {
		err = ErrTimeout
	}
	return Result[T]{
		err:       err,
		isTimeout: true,
		createdAt: time.Now().UTC(),
		id:        uuid.New(),
	}
}

// TimeoutWith is a timeout that still carries a snapshot, e.g. the bitset
// observed when a readiness wait gave up.
func TimeoutWith[T any](err error, snapshot T) Result[T] {
	r := Timeout[T](err)
	r.result = snapshot
	r.hasResult = true
	return r
}

func TimeoutFrom[In, Out any](from Result[In]) Result[Out] {
	return Result[Out]{
		err:       from.err,
		isSuccess: false,
		isTimeout: from.isTimeout,
		createdAt: from.createdAt,
		id:        from.id,
	}
}

func (r Result[T]) Result() T {
	return r.result
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) IsSuccess() bool {
	return r.isSuccess
}

func (r Result[T]) IsTimeout() bool {
	return r.isTimeout
}

func (r Result[T]) IsFailure() bool {
	return !r.isSuccess && !r.isTimeout && r.err != nil
}

func (r Result[T]) HasResult() bool {
	return r.hasResult
}

func (r Result[T]) CreatedAt() time.Time {
	return r.createdAt
}

func (r Result[T]) Id() uuid.UUID {
	return r.id
}
