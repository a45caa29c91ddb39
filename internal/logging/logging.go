// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger returns a slog.Logger writing text records to stdout at the
// provided level. Supported levels: debug, info, warn, error.
func NewLogger(level string) *slog.Logger {
	return New(os.Stdout, level)
}

// New is NewLogger with an explicit destination.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return New(io.Discard, "error")
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
