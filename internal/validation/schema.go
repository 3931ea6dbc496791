package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/goliatone/go-renderly/internal/blocks"
)

var (
	ErrSchemaInvalid    = errors.New("schema invalid")
	ErrSchemaValidation = errors.New("schema validation failed")
)

// ValidationIssue captures a single validation failure.
type ValidationIssue struct {
	Location string
	Message  string
}

// PayloadValidationError surfaces validation issues with schema-aware context.
type PayloadValidationError struct {
	Key    string
	Issues []ValidationIssue
	Cause  error
}

func (e *PayloadValidationError) Error() string {
	if len(e.Issues) == 0 {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return ErrSchemaValidation.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		location := strings.TrimSpace(issue.Location)
		if location == "" {
			location = "#"
		} else if !strings.HasPrefix(location, "#") {
			location = "#" + location
		}
		if issue.Message == "" {
			parts = append(parts, location)
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", location, issue.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *PayloadValidationError) Unwrap() error {
	return ErrSchemaValidation
}

// Issues extracts validation issues from an error.
func Issues(err error) []ValidationIssue {
	if err == nil {
		return nil
	}
	var payloadErr *PayloadValidationError
	if errors.As(err, &payloadErr) && payloadErr != nil {
		return payloadErr.Issues
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) && validationErr != nil {
		return collectValidationIssues(validationErr)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

// SchemaFromFields converts block field descriptors into a JSON schema.
// Extra payload keys are always allowed; the schema only describes what the
// editor knows about.
func SchemaFromFields(fields []blocks.Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	properties := make(map[string]any, len(fields))
	required := make([]any, 0)
	for _, field := range fields {
		name := strings.TrimSpace(field.Key)
		if name == "" {
			continue
		}
		properties[name] = propertyFor(field.Type)
		if field.Required {
			required = append(required, name)
		}
	}
	if len(properties) == 0 {
		return nil
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func propertyFor(kind string) map[string]any {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case blocks.FieldText, blocks.FieldRichText, blocks.FieldMedia, blocks.FieldButton:
		// numbers are rendered as text, so they are accepted too
		return map[string]any{"type": []any{"string", "number", "null"}}
	case blocks.FieldList, blocks.FieldStats:
		return map[string]any{"type": []any{"array", "null"}}
	default:
		return map[string]any{}
	}
}

// ValidateSchema ensures the schema can be compiled.
func ValidateSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	if _, err := compileSchema(schema); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	return nil
}

// ValidatePayload validates payload against the provided schema.
func ValidatePayload(schema map[string]any, payload map[string]any) error {
	if schema == nil {
		return nil
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	return validateCompiled(compiled, payload)
}

// ValidatePartialPayload validates payload without enforcing required fields.
// Translation overlays are partial by nature and are checked this way.
func ValidatePartialPayload(schema map[string]any, payload map[string]any) error {
	if schema == nil {
		return nil
	}
	partial := make(map[string]any, len(schema))
	for key, value := range schema {
		if key == "required" {
			continue
		}
		partial[key] = value
	}
	return ValidatePayload(partial, payload)
}

// Checker validates block payloads against their definition fields and
// memoizes compiled schemas per definition identity.
type Checker struct {
	compiled sync.Map
}

type compiledEntry struct {
	fingerprint string
	schema      *jsonschema.Schema
}

// NewChecker returns an empty Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Check validates payload for definition. A definition without fields
// always passes.
func (c *Checker) Check(definition blocks.DefinitionView, payload map[string]any) error {
	schema := SchemaFromFields(definition.Fields)
	if schema == nil {
		return nil
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	fingerprint := string(encoded)
	identity := definition.Identity()

	var compiled *jsonschema.Schema
	if cached, ok := c.compiled.Load(identity); ok {
		if entry := cached.(compiledEntry); entry.fingerprint == fingerprint {
			compiled = entry.schema
		}
	}
	if compiled == nil {
		compiled, err = compileEncoded(encoded)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
		}
		c.compiled.Store(identity, compiledEntry{fingerprint: fingerprint, schema: compiled})
	}

	if err := validateCompiled(compiled, payload); err != nil {
		var payloadErr *PayloadValidationError
		if errors.As(err, &payloadErr) {
			payloadErr.Key = definition.Key
		}
		return err
	}
	return nil
}

func validateCompiled(compiled *jsonschema.Schema, payload map[string]any) error {
	normalized, err := normalizePayload(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	if err := compiled.Validate(normalized); err != nil {
		return &PayloadValidationError{
			Issues: Issues(err),
			Cause:  err,
		}
	}
	return nil
}

// normalizePayload round-trips through JSON so typed Go values (ints,
// []string, nested typed maps) reach the validator in JSON shape.
func normalizePayload(payload map[string]any) (any, error) {
	if payload == nil {
		return map[string]any{}, nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func compileSchema(schema map[string]any) (*jsonschema.Schema, error) {
	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	return compileEncoded(encoded)
}

func compileEncoded(encoded []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(encoded)); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func collectValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if err == nil {
		return nil
	}
	issues := []ValidationIssue{}
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if node == nil {
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, ValidationIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return issues
}
