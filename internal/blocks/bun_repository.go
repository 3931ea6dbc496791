package blocks

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-renderly/internal/identity"
)

const definitionNamespace = "block_definition"

// BunCatalog implements Registry on top of go-repository-bun with optional
// caching.
type BunCatalog struct {
	repo         repository.Repository[*Definition]
	cacheService cache.CacheService
	cachePrefix  string
	now          func() time.Time
}

var _ Registry = (*BunCatalog)(nil)

// NewBunCatalog creates a definition catalog without caching.
func NewBunCatalog(db *bun.DB) *BunCatalog {
	return NewBunCatalogWithCache(db, nil, nil)
}

// NewBunCatalogWithCache creates a definition catalog with caching services.
func NewBunCatalogWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunCatalog {
	base := NewDefinitionRepository(db)
	var svc cache.CacheService
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
		svc = cacheService
	}
	prefix := ""
	if svc != nil {
		prefix = definitionNamespace + cache.KeySeparator
	}
	return &BunCatalog{
		repo:         base,
		cacheService: svc,
		cachePrefix:  prefix,
		now:          time.Now,
	}
}

func (r *BunCatalog) Definition(ctx context.Context, key string) (*Definition, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrDefinitionKeyRequired
	}
	record, err := r.repo.GetByIdentifier(ctx, key)
	if err != nil {
		return nil, mapRepositoryError(err, definitionNamespace, key)
	}
	return record, nil
}

func (r *BunCatalog) List(ctx context.Context) ([]*Definition, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("key ASC")
	}))
	if err != nil {
		return nil, mapRepositoryError(err, definitionNamespace, "")
	}
	return records, nil
}

// Register inserts the definition or updates the row with the same key.
func (r *BunCatalog) Register(ctx context.Context, definition *Definition) (*Definition, error) {
	if definition == nil {
		return nil, ErrDefinitionRequired
	}
	if err := ValidateDefinition(definition); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "block definition is invalid").
			WithTextCode("BLOCK_DEFINITION_INVALID")
	}

	record := cloneDefinition(definition)
	record.Key = strings.TrimSpace(record.Key)
	record.UpdatedAt = r.now()

	existing, err := r.Definition(ctx, record.Key)
	switch {
	case err == nil:
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		updated, updateErr := r.repo.Update(ctx, record,
			repository.UpdateByID(record.ID.String()),
			repository.UpdateColumns(
				"name",
				"category",
				"description",
				"version",
				"schema",
				"default_config",
				"template_markup",
				"template_styles",
				"updated_at",
			),
		)
		if updateErr != nil {
			return nil, mapRepositoryError(updateErr, definitionNamespace, record.Key)
		}
		if err := r.invalidate(ctx); err != nil {
			return nil, err
		}
		return updated, nil
	case IsNotFound(err):
		if record.ID == uuid.Nil {
			record.ID = identity.BlockDefinitionUUID(record.Key)
		}
		record.CreatedAt = record.UpdatedAt
		created, createErr := r.repo.Create(ctx, record)
		if createErr != nil {
			return nil, mapRepositoryError(createErr, definitionNamespace, record.Key)
		}
		if err := r.invalidate(ctx); err != nil {
			return nil, err
		}
		return created, nil
	default:
		return nil, err
	}
}

// InvalidateCache drops cached definition lookups.
func (r *BunCatalog) InvalidateCache(ctx context.Context) error {
	return r.invalidate(ctx)
}

func (r *BunCatalog) invalidate(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}

	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}

	return fmt.Errorf("%s repository error: %w", resource, err)
}
