package logger

import (
	"log/slog"
	"os"
)

// New returns a structured JSON logger using slog. Logs go to stderr so the
// CLIs keep stdout for their payload. The level comes from FZD_LOG_LEVEL
// (debug, info, warn, error), defaulting to info.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelFromEnv(),
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func levelFromEnv() slog.Level {
	switch os.Getenv("FZD_LOG_LEVEL") {
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
