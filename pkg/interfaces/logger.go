// Package interfaces declares the contracts renderly accepts from host
// applications: loggers, document caches, rich-text sanitizers and Markdown
// renderers.
package interfaces

import "context"

// Logger is the leveled logger used across renderly. It follows go-logger's
// method names; internal/logging/gologger adapts a go-logger instance.
type Logger interface {
	Trace(msg string, args ...any)
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	WithContext(ctx context.Context) Logger
}

// LoggerProvider returns the logger for a module name such as
// "renderly.render".
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// FieldsLogger is implemented by loggers that can carry structured fields.
type FieldsLogger interface {
	Logger
	WithFields(fields map[string]any) Logger
}
