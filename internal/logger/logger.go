// Package logger builds slog loggers and the attribute helpers shared by the
// cache, the pagination controller and the binary.
package logger

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// New creates a logger writing to w. format is "json" or "text"; level is one
// of debug, info, warn, error (case-insensitive, default info).
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ParseLevel maps a level name to a slog.Level
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

// Error creates an attribute for a single error under the key "error".
// Returns an empty Attr for nil errors.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Key creates a cache key attribute. Returns an empty Attr for an empty key.
func Key(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("key", key)
}

// Component tags a record with the subsystem that emitted it
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Duration creates an attribute for a duration
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Count creates a numeric attribute under the given key
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
