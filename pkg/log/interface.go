// Package log provides a structured logging interface for npreg's numerical
// operations.
//
// The package defines a minimal, slog-compatible logging interface so the
// estimators, the bandwidth selector and the bootstrap machinery can emit
// structured records (operation, sample counts, bandwidths, permutation counts)
// without binding to a concrete backend. The default backend is log/slog with
// a JSON handler; warnings raised through pkg/errors can additionally be routed
// to zerolog via EnableZerologWarnings.
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// The interface supports contextual field chaining through With, allowing a
// fitted estimator to carry its identity (model name, bandwidth) into every
// record it emits.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If an error value is passed via ErrAttr, its stack trace (when attached
	// by pkg/errors) is rendered as a separate attribute.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
