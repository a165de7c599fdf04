package log

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process-wide structured logger. format is "json" or
// anything else for slog's default text handler; level is a slog
// level name ("debug", "info", "warn", "error"). There is no external
// log shipping here (no log DB, no batch daemon as the teacher has) —
// a stderr handler is the whole of it.
func New(format, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
