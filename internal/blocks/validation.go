package blocks

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goslug "github.com/goliatone/go-slug"
)

// ValidateDefinition checks the catalog-level invariants of a definition:
// a URL-safe key, a name and known field types with unique keys.
func ValidateDefinition(def *Definition) error {
	if def == nil {
		return ErrDefinitionRequired
	}
	if strings.TrimSpace(def.Key) == "" {
		return ErrDefinitionKeyRequired
	}
	return validation.ValidateStruct(def,
		validation.Field(&def.Key, validation.Required, validation.By(func(value any) error {
			key, _ := value.(string)
			if !goslug.IsValid(strings.TrimSpace(key)) {
				return validation.NewError("renderly.blocks.definition.key_invalid", "key must be a lowercase slug")
			}
			return nil
		})),
		validation.Field(&def.Name, validation.Required),
		validation.Field(&def.Schema, validation.By(func(value any) error {
			fields, _ := value.([]Field)
			return validateFields(fields)
		})),
	)
}

func validateFields(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			return validation.NewError("renderly.blocks.field.key_required", "schema fields need a key")
		}
		if _, ok := seen[key]; ok {
			return validation.NewError("renderly.blocks.field.key_duplicate", "schema field keys must be unique: "+key)
		}
		seen[key] = struct{}{}
		if !knownFieldType(field.Type) {
			return validation.NewError("renderly.blocks.field.type_invalid", "unknown schema field type: "+field.Type)
		}
	}
	return nil
}

func knownFieldType(kind string) bool {
	for _, candidate := range FieldTypes {
		if candidate == kind {
			return true
		}
	}
	return false
}
