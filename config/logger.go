package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the slog logger described by level (DEBUG, INFO, WARN,
// ERROR) and format (json or text).
func NewLogger(level string, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Logger builds the configured logger.
func (cfg Config) Logger(w io.Writer) *slog.Logger {
	return NewLogger(cfg.LogLevel, cfg.LogFormat, w)
}
