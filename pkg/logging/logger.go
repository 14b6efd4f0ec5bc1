// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keymgmt.
//
// go-keymgmt is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package logging provides a slog-backed structured logger for key
// management operations.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jeremyhahn/go-keymgmt/pkg/keymgmt"
)

// Logger wraps slog with the conveniences the CLI and generation paths use.
type Logger struct {
	logger *slog.Logger
	debug  bool
}

// NewLogger creates a logger writing text to stderr. Debug enables
// generation progress logging.
func NewLogger(debug bool) *Logger {
	return NewLoggerWithWriter(os.Stderr, debug)
}

// NewLoggerWithWriter creates a logger writing text to w.
func NewLoggerWithWriter(w io.Writer, debug bool) *Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		logger: slog.New(handler),
		debug:  debug,
	}
}

// DefaultLogger returns a logger with debug disabled.
func DefaultLogger() *Logger {
	return NewLogger(false)
}

// Info logs an informational message with structured args.
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Debug logs a debug message with structured args.
func (l *Logger) Debug(msg string, args ...any) {
	if l.debug {
		l.logger.Debug(msg, args...)
	}
}

// Warn logs a warning message with structured args.
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error.
func (l *Logger) Error(err error) {
	l.logger.Error(err.Error())
}

// Errorf logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// Progress returns a generation progress callback that logs each progress
// tick at debug level. The callback is observation-only per the key
// management contract.
func (l *Logger) Progress(alg keymgmt.Algorithm) keymgmt.ProgressFunc {
	return func(stage, iteration int) {
		l.Debug("key generation progress",
			"algorithm", alg.String(),
			"stage", stage,
			"iteration", iteration,
		)
	}
}
