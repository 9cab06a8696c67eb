// Package logger configures the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON slog logger tagged with the service name. Log level
// comes from LOG_LEVEL (debug|info|warn|error), defaulting to info.
func New(serviceName string) *slog.Logger {
	options := &slog.HandlerOptions{
		Level: levelFromEnv(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if level, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(level.String()))}
				}
			}
			return a
		},
	}

	handler := slog.NewJSONHandler(os.Stdout, options)

	return slog.New(handler).With("service", serviceName)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
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
