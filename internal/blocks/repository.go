package blocks

import (
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewDefinitionRepository creates a repository for Definition entities
// identified by their key.
func NewDefinitionRepository(db *bun.DB) repository.Repository[*Definition] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Definition]{
		NewRecord:          func() *Definition { return &Definition{} },
		GetID:              func(d *Definition) uuid.UUID { return d.ID },
		SetID:              func(d *Definition, id uuid.UUID) { d.ID = id },
		GetIdentifier:      func() string { return "key" },
		GetIdentifierValue: func(d *Definition) string { return d.Key },
	})
}
