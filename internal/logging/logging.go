// Package logging builds the process slog.Logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mycoledger/internal/config"
)

// New creates a slog.Logger writing to w. Invalid levels default to info
// and invalid formats to text.
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Open resolves cfg.Destination (stderr, stdout or a file path) and returns
// the logger with a close function for the underlying file.
func Open(cfg config.LogConfig) (*slog.Logger, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Destination) {
	case "", "stderr":
		return New(cfg, os.Stderr), noop, nil
	case "stdout":
		return New(cfg, os.Stdout), noop, nil
	}
	f, err := os.OpenFile(cfg.Destination, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, noop, fmt.Errorf("open log file: %w", err)
	}
	return New(cfg, f), f.Close, nil
}

// ParseLevel converts a string log level to slog.Level.
// Valid levels: "debug", "info", "warn", "error" (case-insensitive).
func ParseLevel(level string) slog.Level {
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
