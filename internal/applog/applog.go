// Package applog sets up DeltaGlider's structured logger. No repo in
// the retrieved corpus pulls in a third-party structured-logging
// library; the one repo that does structured logging at all
// (bureau-foundation-bureau) uses log/slog directly, so this follows
// that precedent rather than reaching for zerolog or zap unprompted.
package applog

import (
	"log/slog"
	"os"
	"strings"
)

// New builds a slog.Logger writing JSON to stderr at the given level
// name ("debug", "info", "warn", "error"; unrecognized names fall back
// to "info").
func New(levelName string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(levelName),
	})
	return slog.New(handler)
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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
