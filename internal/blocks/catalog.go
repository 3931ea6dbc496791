package blocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDefinitionKeyRequired = errors.New("blocks: definition key is required")
	ErrDefinitionRequired    = errors.New("blocks: definition is required")
)

// Catalog resolves block definitions by key.
type Catalog interface {
	Definition(ctx context.Context, key string) (*Definition, error)
	List(ctx context.Context) ([]*Definition, error)
}

// Registry is a Catalog that accepts new or updated definitions. Register
// upserts by key.
type Registry interface {
	Catalog
	Register(ctx context.Context, definition *Definition) (*Definition, error)
}

// NotFoundError is returned when a block resource cannot be located.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// DefinitionsByKey resolves the given keys, skipping unknown ones.
func DefinitionsByKey(ctx context.Context, catalog Catalog, keys []string) (map[string]*Definition, error) {
	out := make(map[string]*Definition, len(keys))
	if catalog == nil {
		return out, nil
	}
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := out[key]; ok {
			continue
		}
		def, err := catalog.Definition(ctx, key)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out[key] = def
	}
	return out, nil
}

// Seed registers every definition in order, stopping on the first failure.
func Seed(ctx context.Context, registry Registry, definitions []*Definition) error {
	for _, def := range definitions {
		if _, err := registry.Register(ctx, def); err != nil {
			return fmt.Errorf("blocks: seed %q: %w", def.Key, err)
		}
	}
	return nil
}

func sortDefinitions(defs []*Definition) {
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].Key < defs[j].Key
	})
}
