package fastset

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with fastset-specific fields.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses a text handler to stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // unreachable level
	}))
}

// WithSet adds a set id field to the logger.
func (l *Logger) WithSet(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("set", id),
	}
}

// WithPartition adds a partition index field to the logger.
func (l *Logger) WithPartition(index int) *Logger {
	return &Logger{
		Logger: l.Logger.With("partition", index),
	}
}

// LogGrow logs a bucket table resize. A zero newBuckets means the partition
// wanted to grow but is already at MaxCapacityBits.
func (l *Logger) LogGrow(count int64, oldBuckets, newBuckets int) {
	if newBuckets == 0 {
		l.Warn("partition at maximum capacity, not growing",
			"count", count,
			"buckets", oldBuckets,
		)
		return
	}
	l.Debug("partition grown",
		"count", count,
		"old_buckets", oldBuckets,
		"new_buckets", newBuckets,
	)
}
