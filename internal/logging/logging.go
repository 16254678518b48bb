// Package logging sets up the process-wide slog logger. This replaces the
// teacher's golang.org/x/exp/slog import with the stdlib log/slog package
// that graduated from the experimental module as of Go 1.21; call sites
// elsewhere in this module use the exact same
// `slog.Default().With("component", ...)` convention the teacher uses.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a process-wide structured logger. level is one of
// "debug", "info", "warn", "error" (case-insensitive); anything else
// defaults to info, matching how the teacher treats unrecognized raft log
// levels.
func Setup(level string, jsonOutput bool) *slog.Logger {
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
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Component returns a logger scoped to a single long-running subsystem, the
// way the teacher's store/plugins/raft packages all tag their logger with a
// "component" or subsystem-specific key before using it.
func Component(name string) *slog.Logger {
	return slog.Default().With("component", name)
}
