// Package logger provides the zap-backed bootstrap logger a process uses
// before any request-scoped observability.Observability exists yet, for
// startup/shutdown and fatal wiring errors, while per-request spans and
// metrics flow through pkg/observability instead. No package in this
// module calls NewLogger.
package logger

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field under the conventional "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Logger is the process-bootstrap logging contract, distinct from
// observability.Logger: it is not context-aware because it logs process
// lifecycle events that happen before or after any request context exists.
type Logger interface {
	Info(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}
