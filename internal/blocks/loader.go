package blocks

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
)

//go:embed seeds/*.md
var seedFiles embed.FS

type definitionEnvelope struct {
	Key           string         `yaml:"key"`
	Name          string         `yaml:"name"`
	Category      string         `yaml:"category"`
	Description   string         `yaml:"description"`
	Version       string         `yaml:"version"`
	Schema        []Field        `yaml:"schema"`
	DefaultConfig map[string]any `yaml:"default_config"`
	Styles        string         `yaml:"styles"`
}

// ParseDefinition reads a definition file: YAML frontmatter with the catalog
// metadata followed by optional template markup. A non-blank body becomes the
// definition's TemplateMarkup.
func ParseDefinition(source []byte) (*Definition, error) {
	var meta definitionEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("blocks: parse definition frontmatter: %w", err)
	}

	def := &Definition{
		Key:            strings.TrimSpace(meta.Key),
		Name:           strings.TrimSpace(meta.Name),
		Category:       strings.TrimSpace(meta.Category),
		Description:    strings.TrimSpace(meta.Description),
		Version:        strings.TrimSpace(meta.Version),
		Schema:         meta.Schema,
		DefaultConfig:  stringKeyedMap(meta.DefaultConfig),
		TemplateStyles: strings.TrimSpace(meta.Styles),
	}
	if markup := strings.TrimSpace(string(body)); markup != "" {
		def.TemplateMarkup = markup
	}
	if def.Category == "" {
		def.Category = "layout"
	}
	if def.Version == "" {
		def.Version = "1.0.0"
	}
	if def.DefaultConfig == nil {
		def.DefaultConfig = map[string]any{}
	}
	if def.Schema == nil {
		def.Schema = []Field{}
	}
	for i := range def.Schema {
		def.Schema[i].Default = stringKeyed(def.Schema[i].Default)
	}
	if err := ValidateDefinition(def); err != nil {
		return nil, fmt.Errorf("blocks: definition %q: %w", def.Key, err)
	}
	return def, nil
}

// stringKeyed rewrites the map[interface{}]interface{} values frontmatter's
// YAML decoder produces for nested mappings into map[string]any, at any depth.
// Payload lookups, JSON encoding and bun writes all need string keys.
func stringKeyed(value any) any {
	switch v := value.(type) {
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = stringKeyed(item)
		}
		return out
	case map[string]any:
		return stringKeyedMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = stringKeyed(item)
		}
		return out
	default:
		return value
	}
}

func stringKeyedMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, item := range m {
		out[key] = stringKeyed(item)
	}
	return out
}

// LoadDefinitions parses every file in fsys matching pattern, sorted by path.
func LoadDefinitions(fsys fs.FS, pattern string) ([]*Definition, error) {
	if pattern == "" {
		pattern = "*.md"
	}
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("blocks: glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	defs := make([]*Definition, 0, len(matches))
	for _, name := range matches {
		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("blocks: read %s: %w", name, err)
		}
		def, err := ParseDefinition(source)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(name), err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// BuiltinDefinitions returns the catalog entries for the built-in block kinds.
func BuiltinDefinitions() ([]*Definition, error) {
	return LoadDefinitions(seedFiles, "seeds/*.md")
}
