// Package logging provides structured logging utilities using the standard library's log/slog package.
// It offers helper functions for creating loggers with consistent configuration and context propagation.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// levelFromEnv maps LOG_LEVEL to a slog level. Unknown values mean info.
func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a new structured logger with JSON output.
// The log level can be controlled via the LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error
// Default level: info
func NewLogger() *slog.Logger {
	return newLogger(os.Stdout, "json")
}

// NewTextLogger creates a new structured logger with human-readable text output.
// The one-shot digest command uses it when LOG_FORMAT=text.
func NewTextLogger() *slog.Logger {
	return newLogger(os.Stdout, "text")
}

// New picks the JSON or text handler by format ("json" unless "text").
func New(format string) *slog.Logger {
	if strings.EqualFold(format, "text") {
		return NewTextLogger()
	}
	return NewLogger()
}

func newLogger(w io.Writer, format string) *slog.Logger {
	level := levelFromEnv()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID returns a context whose logger tags every line with run_id.
// An empty runID generates one.
func WithRunID(ctx context.Context, logger *slog.Logger, runID string) (context.Context, string) {
	if runID == "" {
		runID = NewRunID()
	}
	ctx = context.WithValue(ctx, runIDContextKey, runID)
	return WithLogger(ctx, logger.With(slog.String("run_id", runID))), runID
}

// RunIDFromContext returns the run ID stored by WithRunID, or "".
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(runIDContextKey).(string); ok {
		return id
	}
	return ""
}

// FromContext retrieves the logger from the context, or returns the default logger if not found.
// This enables passing loggers through the application via context.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

type contextKey string

const (
	loggerContextKey contextKey = "logger"
	runIDContextKey  contextKey = "run_id"
)
