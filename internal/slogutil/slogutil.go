package slogutil

import (
	"io"
	"log/slog"
	"strings"
)

// Format names accepted by New.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
)

// levelSilent sits above every standard level.
const levelSilent = slog.Level(100)

// NewLogger creates a human-format logger.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(NewHandler(w, &slog.HandlerOptions{Level: level}))
}

// New creates a logger in the given format ("human" or "json").
// Unknown formats fall back to human.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	if strings.EqualFold(format, FormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return NewLogger(w, level)
}

// NewDiscardLogger creates a logger that discards all output.
func NewDiscardLogger() *slog.Logger {
	return slog.New(NewHandler(io.Discard, &slog.HandlerOptions{Level: levelSilent}))
}

// OrDiscard returns l, or a discard logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return NewDiscardLogger()
	}
	return l
}

// LevelFromString converts a string to a slog.Level.
// Supports: debug, info, warn, error (case-insensitive).
// Returns slog.LevelInfo for unrecognized strings.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity converts CLI verbosity flags to a slog.Level.
// ok is false when neither flag was given, so the configured level applies.
//   - quiet=true: suppresses all logs
//   - verbosity=1: info
//   - verbosity>=2: debug
func LevelFromVerbosity(verbosity int, quiet bool) (level slog.Level, ok bool) {
	if quiet {
		return levelSilent, true
	}
	switch {
	case verbosity <= 0:
		return slog.LevelInfo, false
	case verbosity == 1:
		return slog.LevelInfo, true
	default:
		return slog.LevelDebug, true
	}
}
