package internal

import (
	"log/slog"
	"os"
)

// LoggerFromString builds the process logger from a LOG_LEVEL value.
// Unknown values fall back to INFO rather than failing startup.
func LoggerFromString(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
