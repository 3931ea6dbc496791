package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/util"
)

// ErrProjectRequired is returned when capturing a nil project.
var ErrProjectRequired = errors.New("snapshot: project is required")

// Snapshot is an independent copy of a project's editable state.
type Snapshot struct {
	Project ProjectData `json:"project"`
	Blocks  []BlockData `json:"blocks"`
}

// ProjectData holds the project level fields of a snapshot.
type ProjectData struct {
	Title       string            `json:"title"`
	Slug        string            `json:"slug"`
	Description string            `json:"description"`
	Theme       map[string]string `json:"theme"`
	Settings    map[string]any    `json:"settings"`
	Status      string            `json:"status"`
	Visibility  string            `json:"visibility"`
}

// DefinitionData is the copy of a block definition embedded in a snapshot so
// old revisions stay readable after the catalog changes.
type DefinitionData struct {
	Key            string         `json:"key"`
	Name           string         `json:"name"`
	Category       string         `json:"category"`
	Version        string         `json:"version"`
	Schema         []blocks.Field `json:"schema"`
	DefaultConfig  map[string]any `json:"default_config"`
	TemplateMarkup string         `json:"template_markup,omitempty"`
	TemplateStyles string         `json:"template_styles,omitempty"`
}

// BlockData is one block of a snapshot. ID is nil for blocks that were never
// persisted.
type BlockData struct {
	ID            *int64                    `json:"id"`
	DefinitionKey string                    `json:"definition_key"`
	Definition    DefinitionData            `json:"definition"`
	OrderIndex    int                       `json:"order_index"`
	Config        map[string]any            `json:"config"`
	Translations  map[string]map[string]any `json:"translations"`
}

// Identifier is the persisted id, or definition_key:order_index for blocks
// without one. Two unsaved blocks of the same kind at the same position
// share an identifier.
func (b BlockData) Identifier() string {
	if b.ID != nil && *b.ID != 0 {
		return fmt.Sprintf("%d", *b.ID)
	}
	return fmt.Sprintf("%s:%d", b.DefinitionKey, b.OrderIndex)
}

// Capture snapshots project with blocks in ascending order_index. The
// project's locale settings are normalized in place first, as rendering does.
func Capture(resolver i18n.Resolver, project *projects.Project) (Snapshot, error) {
	if project == nil {
		return Snapshot{}, ErrProjectRequired
	}
	settings := project.EnsureSettings()
	resolver.EnsureLocales(settings)

	snap := Snapshot{
		Project: ProjectData{
			Title:       project.Title,
			Slug:        project.Slug,
			Description: project.Description,
			Theme:       util.CloneStringMap(project.Theme),
			Settings:    util.DeepCloneMap(settings),
			Status:      string(project.EffectiveStatus()),
			Visibility:  string(project.EffectiveVisibility()),
		},
		Blocks: make([]BlockData, 0, len(project.Blocks)),
	}
	for _, inst := range project.SortedBlocks() {
		snap.Blocks = append(snap.Blocks, blockData(inst))
	}
	return snap, nil
}

func blockData(inst *blocks.Instance) BlockData {
	data := BlockData{
		DefinitionKey: inst.DefinitionKey(),
		OrderIndex:    inst.OrderIndex,
		Config:        util.DeepCloneMap(inst.Config),
		Translations:  util.DeepCloneTranslations(inst.Translations),
	}
	if data.Translations == nil {
		data.Translations = map[string]map[string]any{}
	}
	if inst.ID != 0 {
		id := inst.ID
		data.ID = &id
	}
	if def := inst.Definition; def != nil {
		data.Definition = DefinitionData{
			Key:            def.Key,
			Name:           def.Name,
			Category:       def.Category,
			Version:        def.Version,
			Schema:         append([]blocks.Field(nil), def.Schema...),
			DefaultConfig:  util.DeepCloneMap(def.DefaultConfig),
			TemplateMarkup: def.TemplateMarkup,
			TemplateStyles: def.TemplateStyles,
		}
	}
	return data
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Project: s.Project,
		Blocks:  make([]BlockData, len(s.Blocks)),
	}
	out.Project.Theme = util.CloneStringMap(s.Project.Theme)
	out.Project.Settings = util.DeepCloneMap(s.Project.Settings)
	for i, block := range s.Blocks {
		copied := block
		if block.ID != nil {
			id := *block.ID
			copied.ID = &id
		}
		copied.Config = util.DeepCloneMap(block.Config)
		copied.Translations = util.DeepCloneTranslations(block.Translations)
		copied.Definition.Schema = append([]blocks.Field(nil), block.Definition.Schema...)
		copied.Definition.DefaultConfig = util.DeepCloneMap(block.Definition.DefaultConfig)
		out.Blocks[i] = copied
	}
	return out
}

// Definition rebuilds a catalog definition from the embedded copy.
func (d DefinitionData) Definition() *blocks.Definition {
	return &blocks.Definition{
		Key:            d.Key,
		Name:           d.Name,
		Category:       d.Category,
		Version:        d.Version,
		Schema:         append([]blocks.Field(nil), d.Schema...),
		DefaultConfig:  util.DeepCloneMap(d.DefaultConfig),
		TemplateMarkup: d.TemplateMarkup,
		TemplateStyles: d.TemplateStyles,
	}
}

// Canonical encodes value as JSON with sorted object keys and no HTML
// escaping, so equal values always encode to equal bytes.
func Canonical(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Equal compares two JSON-shaped values by their canonical encoding, so an
// int and a float64 with the same value, or a nil and an empty map, are not
// told apart by type alone.
func Equal(a, b any) bool {
	left, err := Canonical(normalizeEmpty(a))
	if err != nil {
		return false
	}
	right, err := Canonical(normalizeEmpty(b))
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

func normalizeEmpty(value any) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case map[string]any:
		if len(typed) == 0 {
			return nil
		}
	case map[string]string:
		if len(typed) == 0 {
			return nil
		}
	}
	return value
}

// Checksum is the hex sha256 of the canonical encoding of s.
func (s Snapshot) Checksum() (string, error) {
	encoded, err := Canonical(s)
	if err != nil {
		return "", fmt.Errorf("snapshot: encode: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// Decode parses a snapshot document. Numbers are kept as json.Number so
// large identifiers survive.
func Decode(data []byte) (Snapshot, error) {
	var snap Snapshot
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	return snap, nil
}
