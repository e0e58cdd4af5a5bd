// Package logger provides a small set of slog helpers shared across the
// codebase: a constructor that picks a handler and level from the
// environment, and two attribute helpers used everywhere a component logs.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
)

// Module provides the process-wide *slog.Logger every other module
// depends on.
var Module = fx.Module("logger",
	fx.Provide(NewLogger),
)

// Scope returns a "scope" attribute identifying the logging component.
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// Error returns an "error" attribute wrapping err. Safe to call with nil.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// NewLogger builds a logger from LOG_LEVEL and GO_ENV. GO_ENV=production
// selects a JSON handler suitable for log aggregation; anything else uses a
// human-readable text handler. LOG_LEVEL accepts debug/info/warn/warning/error,
// case-insensitively, defaulting to info for unset or unrecognized values.
func NewLogger() *slog.Logger {
	level := parseLevel(os.Getenv("LOG_LEVEL"))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("GO_ENV"), "production") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
