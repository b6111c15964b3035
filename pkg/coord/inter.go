package coord

import (
	"time"

	"github.com/google/uuid"
)

type ResultProvider[T any] interface {
	// Result returns the value carried by the outcome
	Result() T
	// CreatedAt time creation (UTC)
	CreatedAt() time.Time
	// Id identifies the attempt in logs
	Id() uuid.UUID
}

// WithError defines an interface for outcomes that can carry an error
type WithError[T any] interface {
	ResultProvider[T]
	// Err returns the error if operation failed or timed out
	Err() error
	// IsSuccess returns true if the operation completed
	IsSuccess() bool
}

// WithTimeout extends WithError with timeout reporting
type WithTimeout[T any] interface {
	WithError[T]
	// IsTimeout returns true if the wait expired before completion
	IsTimeout() bool
}

var _ WithTimeout[int] = Result[int]{}
