// Package logging builds the slog loggers used by the CLI and the MCP server.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps a config level name to a slog level. Unknown names map to
// info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New returns a text logger writing to w, tagged with component.
func New(w io.Writer, level slog.Level, component string) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", component)
}

// Default returns a logger on stderr.
func Default(level slog.Level, component string) *slog.Logger {
	return New(os.Stderr, level, component)
}

// FileOptions controls log file rotation.
type FileOptions struct {
	Level      slog.Level
	MaxSizeMB  int
	MaxBackups int
}

// File returns a logger writing to a size-rotated file at path and the
// closer that flushes it. The stdio MCP transport owns stdout, so the server
// logs only here.
func File(path, component string, opts FileOptions) (*slog.Logger, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
	}
	return New(w, opts.Level, component), w
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
