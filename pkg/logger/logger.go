// Package logger provides structured logging for the cartable client.
// The concrete implementation is zap-backed; a no-op implementation is
// available for library consumers that bring their own logging.
package logger

import "context"

// Fields is a set of key-value pairs attached to a log entry.
type Fields map[string]interface{}

// Logger defines the interface for structured logging.
type Logger interface {
	// Debug logs a debug message.
	Debug(ctx context.Context, msg string, fields ...Fields)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, fields ...Fields)

	// Warn logs a warning message.
	Warn(ctx context.Context, msg string, fields ...Fields)

	// Error logs an error message.
	Error(ctx context.Context, msg string, err error, fields ...Fields)

	// WithFields creates a new logger with additional base fields.
	WithFields(fields Fields) Logger
}
