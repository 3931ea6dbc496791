package logging

import (
	"maps"

	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// WithFields returns a child of logger carrying a copy of fields. Loggers
// that cannot hold fields are returned as is.
func WithFields(logger interfaces.Logger, fields map[string]any) interfaces.Logger {
	fl, ok := logger.(interfaces.FieldsLogger)
	if !ok || len(fields) == 0 {
		return logger
	}
	return fl.WithFields(maps.Clone(fields))
}
