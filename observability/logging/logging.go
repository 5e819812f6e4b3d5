package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// New builds a JSON logger writing to w. Keys follow the collector
// convention: timestamp, severity and message.
func New(w io.Writer, service, env string, level slog.Level) (*slog.Logger, slog.Handler) {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	withAttrs := handler.WithAttrs(attrs)
	return slog.New(withAttrs), withAttrs
}

// Setup configures the process wide loggers. Debug output is enabled outside
// production environments.
func Setup(service, env string) *slog.Logger {
	level := slog.LevelInfo
	if !strings.EqualFold(strings.TrimSpace(env), "prod") && !strings.EqualFold(strings.TrimSpace(env), "production") {
		level = slog.LevelDebug
	}
	base, handler := New(os.Stdout, service, env, level)
	slog.SetDefault(base)

	// Bridge the standard library logger so third-party packages land in the same stream.
	stdBridge := slog.NewLogLogger(handler, slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
