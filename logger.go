package unpackqa

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with unpackqa-specific context.
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

// WithProduct adds a product field to the logger.
func (l *Logger) WithProduct(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("product", name),
	}
}

// LogUnpack logs an unpack operation.
func (l *Logger) LogUnpack(ctx context.Context, elements, flags, tiles int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unpack failed",
			"elements", elements,
			"flags", flags,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "unpack completed",
			"elements", elements,
			"flags", flags,
			"tiles", tiles,
			"elapsed", elapsed,
		)
	}
}

// LogValidation logs a rejected QA array.
func (l *Logger) LogValidation(ctx context.Context, shape []int, err error) {
	l.WarnContext(ctx, "qa validation failed",
		"shape", shape,
		"error", err,
	)
}
