package logging

import (
	"log/slog"
	"strings"
)

// ParseLevel maps a level name from configuration to a slog.Level.
// Unrecognized names fall back to info.
func ParseLevel(level string) slog.Level {
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

// NewPipeLogger returns a JSON logger emitting to a FIFO writer. The level
// can be changed after the fact through the supplied LevelVar.
func NewPipeLogger(w *Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
