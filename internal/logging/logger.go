// BCSkins Inspect - CS2 Item Inspection Gateway
// Copyright 2026 BCSkins
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/BCSkins-com/bcskins-inspect

// Package logging wraps zerolog with the gateway's process-wide logger
// and a handful of correlation-ID helpers: Init plus package-level
// Debug/Info/Warn/Error event builders backed by a swappable global
// logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config controls process-wide logger construction.
type Config struct {
	// Level is one of trace/debug/info/warn/error.
	Level string
	// Pretty enables a human-readable console writer (for local dev);
	// production deployments should leave this false for JSON output.
	Pretty bool
}

// Init (re)configures the global logger. Call once at process start.
func Init(cfg Config) {
	var output io.Writer = os.Stderr
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger = zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// SetLogger overrides the global logger directly; used by tests to assert
// on captured output.
func SetLogger(l zerolog.Logger) {
	logger = l
}

// Logger returns the current global logger.
func Logger() zerolog.Logger {
	return logger
}

func Debug() *zerolog.Event { return logger.Debug() }
func Info() *zerolog.Event  { return logger.Info() }
func Warn() *zerolog.Event  { return logger.Warn() }
func Error() *zerolog.Event { return logger.Error() }
