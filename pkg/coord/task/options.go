package task

import (
	"context"

	"go.uber.org/zap"

	"github.com/ib-77/rtcoord/pkg/coord/logging"
)

type OptionKey string

const InfoKey OptionKey = "task_info"

// Info is the identity a task runs under.
type Info struct {
	Name     string
	Priority int
	Core     int
}

func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, InfoKey, info)
}

func FromContext(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(InfoKey).(Info)
	return info, ok
}

// NameOr returns the running task's name, or def outside a task.
func NameOr(ctx context.Context, def string) string {
	if info, ok := FromContext(ctx); ok {
		return info.Name
	}
	return def
}

// Logger tags base with the running task's name, priority and core.
func Logger(ctx context.Context, base *zap.Logger) *zap.Logger {
	info, ok := FromContext(ctx)
	if !ok {
		return logging.Tagged(base, "task")
	}
	return logging.Tagged(base, info.Name).With(
		zap.Int("priority", info.Priority),
		zap.Int("core", info.Core))
}
