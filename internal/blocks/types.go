package blocks

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Field types understood by the editor. The schema is advisory: rendering
// tolerates payloads that do not match it.
const (
	FieldText     = "text"
	FieldRichText = "richtext"
	FieldMedia    = "media"
	FieldList     = "list"
	FieldButton   = "button"
	FieldStats    = "stats"
)

// FieldTypes lists every accepted Field.Type.
var FieldTypes = []string{FieldText, FieldRichText, FieldMedia, FieldList, FieldButton, FieldStats}

// Field describes one editable field of a block definition.
type Field struct {
	Key         string `json:"key" yaml:"key"`
	Label       string `json:"label" yaml:"label"`
	Type        string `json:"type" yaml:"type"`
	Required    bool   `json:"required,omitempty" yaml:"required"`
	Description string `json:"description,omitempty" yaml:"description"`
	Default     any    `json:"default,omitempty" yaml:"default"`
}

// Definition is a catalog entry describing one kind of block. A non-empty
// TemplateMarkup switches rendering from the built-in template to the
// author-supplied one.
type Definition struct {
	bun.BaseModel `bun:"table:block_definitions,alias:bd"`

	ID             uuid.UUID      `bun:",pk,type:uuid" json:"id"`
	Key            string         `bun:"key,notnull,unique" json:"key"`
	Name           string         `bun:"name,notnull" json:"name"`
	Category       string         `bun:"category,notnull,default:'layout'" json:"category"`
	Description    string         `bun:"description" json:"description,omitempty"`
	Version        string         `bun:"version,notnull,default:'1.0.0'" json:"version"`
	Schema         []Field        `bun:"schema,type:jsonb" json:"schema"`
	DefaultConfig  map[string]any `bun:"default_config,type:jsonb" json:"default_config"`
	TemplateMarkup string         `bun:"template_markup" json:"template_markup,omitempty"`
	TemplateStyles string         `bun:"template_styles" json:"template_styles,omitempty"`
	CreatedAt      time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time      `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// View returns the render-facing projection of the definition.
func (d *Definition) View() DefinitionView {
	if d == nil {
		return DefinitionView{}
	}
	view := DefinitionView{
		Key:            d.Key,
		Name:           d.Name,
		DefaultConfig:  d.DefaultConfig,
		TemplateMarkup: d.TemplateMarkup,
		TemplateStyles: d.TemplateStyles,
		Fields:         d.Schema,
	}
	if d.ID != uuid.Nil {
		view.ID = d.ID.String()
	}
	return view
}

// Instance is one placed block within a project. Config holds the default
// locale content and Translations the per-locale overrides.
type Instance struct {
	ID           int64                     `json:"id"`
	ProjectID    int64                     `json:"project_id"`
	DefinitionID uuid.UUID                 `json:"definition_id"`
	OrderIndex   int                       `json:"order_index"`
	Config       map[string]any            `json:"config"`
	Translations map[string]map[string]any `json:"translations"`
	Definition   *Definition               `json:"definition,omitempty"`
}

// DefinitionKey returns the key of the resolved definition, if any.
func (i *Instance) DefinitionKey() string {
	if i == nil || i.Definition == nil {
		return ""
	}
	return i.Definition.Key
}
