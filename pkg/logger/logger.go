// Package logger configures the process-wide zap logger for Nimbus.
// The compaction pass logs against whatever logger is installed here; the
// CLI installs one at startup and library users may swap in their own.
package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the logger the process runs with.
type Options struct {
	// Level is a zap level name (debug, info, warn, error).
	Level string
	// Console switches from JSON to human-readable console output.
	Console bool
}

var current atomic.Pointer[zap.Logger]

// Setup builds a logger from opts and installs it as the process logger.
func Setup(opts Options) error {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	if opts.Console {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	log, err := cfg.Build()
	if err != nil {
		return err
	}

	Set(log)
	return nil
}

// Set installs log as the process logger. Tests use this to capture the
// pass output.
func Set(log *zap.Logger) {
	current.Store(log)
}

// Get returns the installed logger, installing a production default on
// first use if Setup was never called.
func Get() *zap.Logger {
	if log := current.Load(); log != nil {
		return log
	}
	log, err := zap.NewProduction()
	if err != nil {
		log = zap.NewNop()
	}
	current.CompareAndSwap(nil, log)
	return current.Load()
}

// ForColumn returns the process logger scoped to one column of one table,
// the granularity the pass works at.
func ForColumn(table, column string) *zap.Logger {
	return Get().With(
		zap.String("table", table),
		zap.String("column", column),
	)
}

// Sync flushes buffered entries on the installed logger.
func Sync() {
	if log := current.Load(); log != nil {
		_ = log.Sync()
	}
}
