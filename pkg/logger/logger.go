// Package logger provides the structured logging contract used across StatusService.
// The production implementation is backed by zap (see internal/infrastructure/monitoring);
// this package only holds the interface, field helpers and a null logger for tests.
package logger

import (
	"context"
	"time"

	"github.com/turtacn/statusservice/pkg/constants"
)

// ================================================================================
// Logger Interface
// ================================================================================

// Logger defines the interface for structured logging
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, message string, fields ...Field)

	// Info logs an informational message
	Info(ctx context.Context, message string, fields ...Field)

	// Warn logs a warning message
	Warn(ctx context.Context, message string, fields ...Field)

	// Error logs an error message
	Error(ctx context.Context, message string, err error, fields ...Field)

	// Fatal logs a fatal message and exits the application
	Fatal(ctx context.Context, message string, err error, fields ...Field)

	// WithFields creates a new logger with additional fields
	WithFields(fields ...Field) Logger

	// WithComponent creates a new logger for a specific component
	WithComponent(component string) Logger

	// SetLevel sets the logging level
	SetLevel(level constants.LogLevel)
}

// ================================================================================
// Field Type for Structured Logging
// ================================================================================

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key string, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 creates an int64 field
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Error creates an error field
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates a time field
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Any creates a field with any type
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// ================================================================================
// Null Logger
// ================================================================================

type nullLogger struct{}

// NewNullLogger returns a Logger that discards everything. Fatal does not exit.
func NewNullLogger() Logger {
	return nullLogger{}
}

func (nullLogger) Debug(context.Context, string, ...Field)        {}
func (nullLogger) Info(context.Context, string, ...Field)         {}
func (nullLogger) Warn(context.Context, string, ...Field)         {}
func (nullLogger) Error(context.Context, string, error, ...Field) {}
func (nullLogger) Fatal(context.Context, string, error, ...Field) {}
func (l nullLogger) WithFields(...Field) Logger                   { return l }
func (l nullLogger) WithComponent(string) Logger                  { return l }
func (nullLogger) SetLevel(constants.LogLevel)                    {}
