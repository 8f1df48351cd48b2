// Package log owns the process-wide slog configuration. A binary calls Setup
// once at startup; packages then derive their own loggers through WithModule
// so every line carries the emitting component.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger at the given level. An unknown level
// falls back to info, so a typo in LOG_LEVEL never silences a process.
func Setup(logLevel string) {
	slog.SetDefault(New(logLevel))
}

// New builds a text logger writing to stderr at the given level.
func New(logLevel string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}))
}

// WithModule tags the default logger with the component name used across the
// engine's log lines.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

func parseLevel(logLevel string) slog.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
