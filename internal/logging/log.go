package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger for a component. Output goes to stderr so
// command summaries on stdout stay clean.
func New(component, level, format string) *slog.Logger {
	return NewWithWriter(os.Stderr, component, level, format)
}

func NewWithWriter(w io.Writer, component, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("component", component)
}

// ParseLevel maps a level name to a slog.Level; unknown names mean info.
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
