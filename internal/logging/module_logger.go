package logging

import (
	"context"
	"strings"

	"github.com/goliatone/go-renderly/pkg/interfaces"
)

const (
	rootModule      = "renderly"
	renderModule    = "renderly.render"
	publisherModule = "renderly.publisher"
	revisionsModule = "renderly.revisions"
	catalogModule   = "renderly.catalog"
)

const (
	fieldDefinitionKey = "definition_key"
	fieldBlockID       = "block_id"
	fieldLocale        = "locale"
	fieldProjectID     = "project_id"
	fieldAction        = "action"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// RenderLogger returns the logger namespace reserved for the block template engine.
func RenderLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, renderModule)
}

// PublisherLogger returns the logger namespace reserved for page composition.
func PublisherLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, publisherModule)
}

// RevisionsLogger returns the logger namespace reserved for revision history.
func RevisionsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, revisionsModule)
}

// CatalogLogger returns the logger namespace reserved for block definition catalogs.
func CatalogLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, catalogModule)
}

// WithBlockContext enriches the logger with the definition key, block id and
// locale of the block being rendered. Empty values are ignored.
func WithBlockContext(logger interfaces.Logger, definitionKey string, blockID int64, locale string) interfaces.Logger {
	fields := map[string]any{fieldBlockID: blockID}
	if trimmed := strings.TrimSpace(definitionKey); trimmed != "" {
		fields[fieldDefinitionKey] = trimmed
	}
	if trimmed := strings.TrimSpace(locale); trimmed != "" {
		fields[fieldLocale] = trimmed
	}
	return WithFields(logger, fields)
}

// WithProjectContext enriches the logger with project id and the mutation action.
func WithProjectContext(logger interfaces.Logger, projectID int64, action string) interfaces.Logger {
	fields := map[string]any{fieldProjectID: projectID}
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		fields[fieldAction] = trimmed
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
