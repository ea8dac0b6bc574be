package vmtest

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with harness-specific context.
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

// WithRunID tags every record with the id of the current run.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithDir adds the target directory field to the logger.
func (l *Logger) WithDir(dir string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dir", dir),
	}
}

// LogTransition logs a state change of the run.
func (l *Logger) LogTransition(ctx context.Context, from, to State) {
	l.DebugContext(ctx, "state changed",
		"from", from.String(),
		"to", to.String(),
	)
}

// LogProvision logs the creation of one file.
func (l *Logger) LogProvision(ctx context.Context, index int, path string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "provision failed",
			"index", index,
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "provision completed",
			"index", index,
			"path", path,
			"bytes", size,
		)
	}
}

// LogMap logs the establishment of one mapping.
func (l *Logger) LogMap(ctx context.Context, index int, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "map failed",
			"index", index,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "map completed",
			"index", index,
			"bytes", size,
		)
	}
}

// LogHold logs the start of the observation window.
// The pid lets an operator find the mappings under /proc/<pid>/maps.
func (l *Logger) LogHold(ctx context.Context, mappings int, mappedBytes int64, d time.Duration) {
	l.InfoContext(ctx, "holding mappings",
		"pid", os.Getpid(),
		"mappings", mappings,
		"mapped_bytes", mappedBytes,
		"duration", d,
	)
}

// LogTeardown logs the unmap and removal of one file.
func (l *Logger) LogTeardown(ctx context.Context, index int, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "teardown failed",
			"index", index,
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "teardown completed",
			"index", index,
			"path", path,
		)
	}
}

// LogRun logs the outcome of a whole run.
func (l *Logger) LogRun(ctx context.Context, files int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "run failed",
			"files", files,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "run completed",
			"files", files,
			"elapsed", elapsed,
		)
	}
}
