package blocks

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/goliatone/go-renderly/internal/i18n"
)

// DefinitionView is the part of a definition the renderer needs.
type DefinitionView struct {
	// ID is the persisted identity, empty for inline definitions.
	ID             string
	Key            string
	Name           string
	DefaultConfig  map[string]any
	TemplateMarkup string
	TemplateStyles string
	// Fields is the advisory schema, used only for payload warnings.
	Fields []Field
}

// Identity keys compiled templates: the persisted id when present, else the key.
func (v DefinitionView) Identity() string {
	if id := strings.TrimSpace(v.ID); id != "" {
		return id
	}
	return v.Key
}

// HasTemplate reports whether the definition ships its own markup.
func (v DefinitionView) HasTemplate() bool {
	return strings.TrimSpace(v.TemplateMarkup) != ""
}

// InlineDefinition builds a view for a key that is not in any catalog.
func InlineDefinition(key string) DefinitionView {
	return DefinitionView{Key: key, DefaultConfig: map[string]any{}}
}

// Renderable is what the block template engine consumes. It is built either
// from a persisted Instance or from an unsaved payload, so rendering never
// depends on storage types.
type Renderable struct {
	// ID is zero for blocks that were never persisted.
	ID           int64
	Definition   DefinitionView
	OrderIndex   int
	Config       map[string]any
	Translations map[string]map[string]any
}

// FromInstance adapts a persisted instance.
func FromInstance(inst *Instance) Renderable {
	if inst == nil {
		return Renderable{}
	}
	return Renderable{
		ID:           inst.ID,
		Definition:   inst.Definition.View(),
		OrderIndex:   inst.OrderIndex,
		Config:       inst.Config,
		Translations: inst.Translations,
	}
}

// FromPayload builds an ephemeral block from a JSON-shaped payload carrying
// id, order_index, config and translations. Missing fields default to zero
// values and position is used when order_index is absent.
func FromPayload(data map[string]any, definition DefinitionView, position int) Renderable {
	block := Renderable{
		Definition: definition,
		OrderIndex: position,
	}
	if id, ok := toInt64(data["id"]); ok {
		block.ID = id
	}
	if order, ok := toInt64(data["order_index"]); ok {
		block.OrderIndex = int(order)
	}
	if config, ok := data["config"].(map[string]any); ok {
		block.Config = config
	}
	block.Translations = toTranslations(data["translations"])
	return block
}

// BlockID is the persisted id, falling back to the order index.
func (r Renderable) BlockID() int64 {
	if r.ID != 0 {
		return r.ID
	}
	return int64(r.OrderIndex)
}

// Key returns the definition key.
func (r Renderable) Key() string {
	return r.Definition.Key
}

// Content exposes the payload tiers used for locale selection.
func (r Renderable) Content() i18n.Content {
	return i18n.Content{
		Config:       r.Config,
		Defaults:     r.Definition.DefaultConfig,
		Translations: r.Translations,
	}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toTranslations(value any) map[string]map[string]any {
	switch typed := value.(type) {
	case map[string]map[string]any:
		return typed
	case map[string]any:
		out := make(map[string]map[string]any, len(typed))
		for locale, payload := range typed {
			if m, ok := payload.(map[string]any); ok {
				out[locale] = m
			}
		}
		return out
	default:
		return nil
	}
}
