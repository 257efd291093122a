package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sqoia-dev/panel.sh/internal/infrastructure/config"
)

// Logger is the application logger: a thin wrapper over slog that stamps
// every record with the service name and running version.
//
// The level is held in a shared slog.LevelVar so the debug_logging device
// setting can flip the whole process to debug output at runtime, across
// every child logger created with With.
type Logger struct {
	*slog.Logger

	level *slog.LevelVar
	base  slog.Level
}

// New builds a Logger from the logging section of config.yaml.
// Unknown formats fall back to JSON, unknown outputs to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	base := parseLevel(cfg.Level)

	level := new(slog.LevelVar)
	level.Set(base)

	var output io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "panelsh"),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
		level:  level,
		base:   base,
	}
}

// parseLevel converts a config string to a slog.Level.
// Unrecognised values default to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child logger with additional default attributes, typically
// a component name:
//
//	apiLog := log.With("component", "api")
//
// Children share the parent's level, including the debug toggle.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		level:  l.level,
		base:   l.base,
	}
}

// SetDebug backs the debug_logging device setting. Enabling drops the level
// to debug; disabling restores the configured level. The change applies to
// the whole logger tree immediately.
func (l *Logger) SetDebug(enabled bool) {
	if l.level == nil {
		return
	}
	if enabled {
		l.level.Set(slog.LevelDebug)
	} else {
		l.level.Set(l.base)
	}
}

// Default returns a stdout JSON logger at info level, for use during early
// startup before the config file has been read.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
