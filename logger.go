package replay

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with replay-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// With returns a Logger that adds the given attributes to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, eid EID, idx uint32, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"eid", uint64(eid),
			"idx", idx,
		)
	}
}

// LogEviction logs a record overwritten by the ring buffer.
func (l *Logger) LogEviction(ctx context.Context, eid EID, idx uint32) {
	l.DebugContext(ctx, "record evicted",
		"eid", uint64(eid),
		"idx", idx,
	)
}

// LogSample logs a sample operation.
func (l *Logger) LogSample(ctx context.Context, batchSize int, beta float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sample failed",
			"batch_size", batchSize,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "sample completed",
			"batch_size", batchSize,
			"beta", beta,
		)
	}
}

// LogUpdatePriorities logs a priority update.
func (l *Logger) LogUpdatePriorities(ctx context.Context, count, skipped int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "update priorities failed",
			"count", count,
			"error", err,
		)
	case skipped > 0:
		l.WarnContext(ctx, "update priorities skipped stale eids",
			"count", count,
			"skipped", skipped,
			"applied", count-skipped,
		)
	default:
		l.DebugContext(ctx, "update priorities completed",
			"count", count,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, idx int, eid EID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"idx", idx,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"idx", idx,
			"eid", uint64(eid),
		)
	}
}
