// Package logging sets up go-ethereum's structured logger as the process
// default, with an optional rotating file sink, the way every concrete
// binary across the pack (coreth's cmd/abigen, op-geth/rollup-geth's
// cmd/geth) configures logging at its entrypoint.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process-wide logger.
type Config struct {
	// Level is one of crit/error/warn/info/debug/trace (case-insensitive).
	Level string

	// FilePath, if set, sends output to a lumberjack-rotated file instead
	// of the terminal.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Color forces ANSI terminal coloring; ignored when FilePath is set.
	Color bool
}

// DefaultConfig mirrors the teacher's own abigen invocation
// (log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)).
func DefaultConfig() Config {
	return Config{Level: "info", Color: true}
}

// Setup installs the process-default logger per cfg. Call once, early in
// main.
func Setup(cfg Config) error {
	if cfg.FilePath == "" {
		log.SetDefault(log.NewLogger(handlerFor(os.Stderr, cfg.Level, cfg.Color)))
		return nil
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    orDefault(cfg.MaxSizeMB, 100),
		MaxBackups: orDefault(cfg.MaxBackups, 5),
		MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		Compress:   true,
	}
	log.SetDefault(log.NewLogger(handlerFor(rotator, cfg.Level, false)))
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// handlerFor picks the level constant matching s (defaulting to info for
// an empty or unrecognized value) and builds a terminal handler writing to
// wr.
func handlerFor(wr io.Writer, s string, color bool) slog.Handler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crit", "critical":
		return log.NewTerminalHandlerWithLevel(wr, log.LevelCrit, color)
	case "error":
		return log.NewTerminalHandlerWithLevel(wr, log.LevelError, color)
	case "warn", "warning":
		return log.NewTerminalHandlerWithLevel(wr, log.LevelWarn, color)
	case "debug":
		return log.NewTerminalHandlerWithLevel(wr, log.LevelDebug, color)
	case "trace":
		return log.NewTerminalHandlerWithLevel(wr, log.LevelTrace, color)
	default:
		return log.NewTerminalHandlerWithLevel(wr, log.LevelInfo, color)
	}
}
