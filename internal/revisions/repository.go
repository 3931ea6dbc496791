package revisions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists revisions. List and Latest order by Sequence
// descending.
type Repository interface {
	Create(ctx context.Context, revision *Revision) (*Revision, error)
	Get(ctx context.Context, id uuid.UUID) (*Revision, error)
	Latest(ctx context.Context, projectID int64) (*Revision, error)
	List(ctx context.Context, projectID int64) ([]*Revision, error)
}

// NotFoundError is returned when a revision cannot be located.
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

const revisionResource = "project_revision"

// NewRevisionRepository creates the go-repository-bun repository for
// revisions.
func NewRevisionRepository(db *bun.DB) repository.Repository[*Revision] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Revision]{
		NewRecord: func() *Revision { return &Revision{} },
		GetID: func(r *Revision) uuid.UUID {
			return r.ID
		},
		SetID: func(r *Revision, id uuid.UUID) {
			r.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(r *Revision) string {
			if r == nil {
				return ""
			}
			return r.ID.String()
		},
	})
}

// MemoryRepository keeps revisions per project in insertion order.
type MemoryRepository struct {
	mu        sync.RWMutex
	byProject map[int64][]*Revision
	byID      map[uuid.UUID]*Revision
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory revision store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byProject: make(map[int64][]*Revision),
		byID:      make(map[uuid.UUID]*Revision),
	}
}

func (m *MemoryRepository) Create(_ context.Context, revision *Revision) (*Revision, error) {
	if revision == nil {
		return nil, ErrRevisionRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneRevision(revision)
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.byProject[cloned.ProjectID] = append(m.byProject[cloned.ProjectID], cloned)
	m.byID[cloned.ID] = cloned
	return cloneRevision(cloned), nil
}

func (m *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: revisionResource, Key: id.String()}
	}
	return cloneRevision(rec), nil
}

func (m *MemoryRepository) Latest(_ context.Context, projectID int64) (*Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.byProject[projectID]
	if len(history) == 0 {
		return nil, &NotFoundError{Resource: revisionResource, Key: fmt.Sprintf("project:%d", projectID)}
	}
	latest := history[0]
	for _, rec := range history[1:] {
		if rec.Sequence >= latest.Sequence {
			latest = rec
		}
	}
	return cloneRevision(latest), nil
}

func (m *MemoryRepository) List(_ context.Context, projectID int64) ([]*Revision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.byProject[projectID]
	out := make([]*Revision, len(history))
	for i, rec := range history {
		out[i] = cloneRevision(rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sequence > out[j].Sequence
	})
	return out, nil
}
