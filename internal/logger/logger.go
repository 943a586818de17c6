// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler writing to w at the given level as the slog
// default. A nil w falls back to stderr; unrecognized levels fall back to
// info.
func Setup(w io.Writer, level string) {
	if w == nil {
		w = os.Stderr
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// WithComponent returns a logger tagged with a component field.
func WithComponent(component string) *slog.Logger {
	return slog.With("component", component)
}
