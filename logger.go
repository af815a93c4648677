package rsgislib

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with clustering-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithK adds a cluster count field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithBands adds a band selection field to the logger.
func (l *Logger) WithBands(bands []int) *Logger {
	return &Logger{
		Logger: l.Logger.With("bands", bands),
	}
}

// WithIteration adds an iteration field to the logger.
func (l *Logger) WithIteration(iteration int) *Logger {
	return &Logger{
		Logger: l.Logger.With("iteration", iteration),
	}
}

// LogSeed logs a seeding operation.
func (l *Logger) LogSeed(ctx context.Context, method string, k int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "seeding failed",
			"method", method,
			"k", k,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "seeding completed",
			"method", method,
			"k", k,
		)
	}
}

// LogRefine logs a completed refinement run.
func (l *Logger) LogRefine(ctx context.Context, iterations, centroids int, state RunState, err error) {
	if err != nil {
		l.ErrorContext(ctx, "refinement failed",
			"iterations", iterations,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "refinement completed",
			"iterations", iterations,
			"centroids", centroids,
			"state", state.String(),
		)
	}
}

// LogLabel logs an output labelling operation.
func (l *Logger) LogLabel(ctx context.Context, centroids int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "labelling failed",
			"centroids", centroids,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "labelling completed",
			"centroids", centroids,
			"duration", duration,
		)
	}
}

// LogSnapshot logs a centre persistence operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
		)
	}
}
