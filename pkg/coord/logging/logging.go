package logging

import (
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string        `yaml:"level"`
	Development bool          `yaml:"development"`
	FlushEvery  time.Duration `yaml:"flush_every"`
}

// New builds the process logger. Entries are buffered and flushed in the
// background, so a log call never waits on the output device. Call the
// returned stop function before exit to flush what is left.
func New(cfg Config) (*zap.Logger, func() error, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		level = parsed
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)
	if cfg.Development {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	flush := cfg.FlushEvery
	if flush <= 0 {
		flush = time.Second
	}
	sink := &zapcore.BufferedWriteSyncer{
		WS:            zapcore.AddSync(os.Stdout),
		FlushInterval: flush,
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))
	return zap.New(core), sink.Stop, nil
}

// Tagged returns base named after a log category, the way each firmware
// task logs under its own tag.
func Tagged(base *zap.Logger, tag string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.Named(tag)
}
