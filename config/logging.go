package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds a slog logger from the logging section. It does not touch the
// default logger.
func (l LoggingConfig) NewLogger() *slog.Logger {
	var out io.Writer = os.Stdout
	if l.Output == "stderr" {
		out = os.Stderr
	}
	return l.NewLoggerTo(out)
}

func (l LoggingConfig) NewLoggerTo(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(l.Level)}

	var handler slog.Handler
	switch l.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	if len(l.Attributes) > 0 {
		attrs := make([]slog.Attr, 0, len(l.Attributes))
		for k, v := range l.Attributes {
			attrs = append(attrs, slog.String(k, v))
		}
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler)
}

// ParseLogLevel converts a level name to slog.Level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
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
