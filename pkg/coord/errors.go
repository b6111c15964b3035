package coord

import (
	"context"
	"errors"
	"reflect"
	"time"
)

// Forever blocks without a deadline.
const Forever time.Duration = -1

var (
	ErrTimeout   = errors.New("timed out")
	ErrNotHolder = errors.New("release by a task that does not hold the lock")
	ErrClosed    = errors.New("stopped")
)

func IsNil(i interface{}) bool {
	if i == nil || (reflect.ValueOf(i).Kind() == reflect.Ptr && reflect.ValueOf(i).IsNil()) {
		return true
	}
	return false
}

func GetErrors(err error) []error {
	if IsNil(err) {
		return []error{}
	}

	e, ok := err.(interface{ Unwrap() []error })
	if ok {
		return e.Unwrap()
	}

	return []error{err}
}

func IsTimeoutError(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func IsStopError(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled)
}

// Deadline derives the context a blocking call waits on. A negative timeout
// adds no deadline. Callers must check for timeout == 0 themselves.
func Deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout < 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// WaitErr maps the reason a deadline-bound wait ended into the error kept
// in a timeout result.
func WaitErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return errors.Join(ErrClosed, err)
	}
	return ErrTimeout
}
