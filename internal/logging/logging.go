package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide structured logger. Unknown levels fall
// back to info rather than failing startup.
func Setup(level string) {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
