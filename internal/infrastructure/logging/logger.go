// Package logging configures the process-wide structured logger.
//
// Everything funnels through log/slog; this package only decides the
// handler (JSON or text), the level, the sink, and the attributes
// every record carries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/thingsd/internal/infrastructure/config"
)

// Logger embeds *slog.Logger so call sites use the slog API directly.
// Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New builds a logger from the loaded configuration. Unrecognised
// level, format, or output values fall back to info, JSON, and stdout
// rather than erroring; logging must come up even on a bad config.
func New(cfg config.LoggingConfig, version string) *Logger {
	level, ok := levelNames[strings.ToLower(cfg.Level)]
	if !ok {
		level = slog.LevelInfo
	}

	var sink io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		sink = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(sink, opts)
	} else {
		handler = slog.NewJSONHandler(sink, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "thingsd"),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// With returns a child logger carrying extra default attributes,
// typically a component name.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the bootstrap logger used before configuration loads:
// JSON to stdout at info level, version "dev".
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
