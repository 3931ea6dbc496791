package revisions

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunRepository stores revisions through go-repository-bun with optional
// caching.
type BunRepository struct {
	repo         repository.Repository[*Revision]
	cacheService cache.CacheService
	cachePrefix  string
}

var _ Repository = (*BunRepository)(nil)

// NewBunRepository creates a revision repository without caching.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache creates a revision repository whose reads go
// through cacheService. Every Create drops the cached reads.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	base := NewRevisionRepository(db)
	out := &BunRepository{repo: base}
	if cacheService != nil && serializer != nil {
		out.repo = repositorycache.New(base, cacheService, serializer)
		out.cacheService = cacheService
		out.cachePrefix = revisionResource + cache.KeySeparator
	}
	return out
}

func (r *BunRepository) Create(ctx context.Context, revision *Revision) (*Revision, error) {
	if revision == nil {
		return nil, ErrRevisionRequired
	}
	record := cloneRevision(revision)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	if err := r.invalidate(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *BunRepository) Get(ctx context.Context, id uuid.UUID) (*Revision, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return record, nil
}

func (r *BunRepository) Latest(ctx context.Context, projectID int64) (*Revision, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.project_id = ?", projectID)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.sequence DESC")
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "")
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: revisionResource, Key: fmt.Sprintf("project:%d", projectID)}
	}
	return records[0], nil
}

func (r *BunRepository) List(ctx context.Context, projectID int64) ([]*Revision, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.project_id = ?", projectID)
		}),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.sequence DESC")
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "")
	}
	return records, nil
}

// InvalidateCache drops cached revision reads.
func (r *BunRepository) InvalidateCache(ctx context.Context) error {
	return r.invalidate(ctx)
}

func (r *BunRepository) invalidate(ctx context.Context) error {
	if r.cacheService == nil || r.cachePrefix == "" {
		return nil
	}
	return r.cacheService.DeleteByPrefix(ctx, r.cachePrefix)
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: revisionResource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", revisionResource, err)
}
