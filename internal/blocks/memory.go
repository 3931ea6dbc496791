package blocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-renderly/internal/identity"
	"github.com/goliatone/go-renderly/internal/util"
	"github.com/google/uuid"
)

// NewMemoryCatalog constructs an in-memory definition registry.
func NewMemoryCatalog(opts ...MemoryOption) *MemoryCatalog {
	catalog := &MemoryCatalog{
		byKey: make(map[string]*Definition),
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(catalog)
		}
	}
	return catalog
}

// MemoryOption configures a MemoryCatalog.
type MemoryOption func(*MemoryCatalog)

// WithMemoryClock overrides the timestamp source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCatalog) {
		if now != nil {
			c.now = now
		}
	}
}

// MemoryCatalog keeps definitions keyed by Definition.Key.
type MemoryCatalog struct {
	mu    sync.RWMutex
	byKey map[string]*Definition
	now   func() time.Time
}

var _ Registry = (*MemoryCatalog)(nil)

func (m *MemoryCatalog) Definition(_ context.Context, key string) (*Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.byKey[strings.TrimSpace(key)]
	if !ok {
		return nil, &NotFoundError{Resource: "block_definition", Key: key}
	}
	return cloneDefinition(record), nil
}

func (m *MemoryCatalog) List(_ context.Context) ([]*Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	defs := make([]*Definition, 0, len(m.byKey))
	for _, def := range m.byKey {
		defs = append(defs, cloneDefinition(def))
	}
	sortDefinitions(defs)
	return defs, nil
}

func (m *MemoryCatalog) Register(_ context.Context, definition *Definition) (*Definition, error) {
	if definition == nil {
		return nil, ErrDefinitionRequired
	}
	if err := ValidateDefinition(definition); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneDefinition(definition)
	cloned.Key = strings.TrimSpace(cloned.Key)
	now := m.now()
	if existing, ok := m.byKey[cloned.Key]; ok {
		cloned.ID = existing.ID
		cloned.CreatedAt = existing.CreatedAt
	} else {
		if cloned.ID == uuid.Nil {
			cloned.ID = identity.BlockDefinitionUUID(cloned.Key)
		}
		cloned.CreatedAt = now
	}
	cloned.UpdatedAt = now
	m.byKey[cloned.Key] = cloned

	return cloneDefinition(cloned), nil
}

func cloneDefinition(def *Definition) *Definition {
	if def == nil {
		return nil
	}
	cloned := *def
	if def.Schema != nil {
		cloned.Schema = make([]Field, len(def.Schema))
		for i, field := range def.Schema {
			field.Default = util.DeepCloneValue(field.Default)
			cloned.Schema[i] = field
		}
	}
	cloned.DefaultConfig = util.DeepCloneMap(def.DefaultConfig)
	return &cloned
}
