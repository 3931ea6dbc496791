package revisions

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/logging"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/snapshot"
	"github.com/goliatone/go-renderly/internal/util"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

const (
	// ActionRestore is the action callers record after RestoreRevision.
	ActionRestore = "revision.restore"
	// ActionImport is the action callers record after ImportSnapshot.
	ActionImport = "project.import"
	// DefaultImportTitle names imported projects whose snapshot has no title.
	DefaultImportTitle = "Imported project"
)

var (
	ErrRepositoryRequired = errors.New("revisions: repository is required")
	ErrProjectRequired    = errors.New("revisions: project is required")
	ErrRevisionRequired   = errors.New("revisions: revision is required")
	ErrCatalogRequired    = errors.New("revisions: definition catalog is required")
)

// Service records, lists and restores project revisions.
type Service struct {
	repo     Repository
	resolver i18n.Resolver
	logger   interfaces.Logger
	now      func() time.Time
	newID    func() uuid.UUID
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithResolver sets the locale resolver used when snapshotting.
func WithResolver(resolver i18n.Resolver) Option {
	return func(s *Service) {
		s.resolver = resolver
	}
}

// WithClock overrides the revision timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides revision id generation.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService builds a revision service on repo.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	s := &Service{
		repo:     repo,
		resolver: i18n.NewResolver(i18n.FallbackLocale),
		logger:   logging.NoOp(),
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// RecordRevision snapshots project, diffs it against the latest stored
// revision and appends the result. userID may be nil for system edits.
func (s *Service) RecordRevision(ctx context.Context, project *projects.Project, userID *int64, action string) (*Revision, error) {
	if project == nil {
		return nil, ErrProjectRequired
	}
	action = strings.TrimSpace(action)
	if err := validation.Validate(action, validation.Required, validation.Length(1, 128)); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "revision action is invalid").
			WithTextCode("REVISION_ACTION_INVALID")
	}

	current, err := snapshot.Capture(s.resolver, project)
	if err != nil {
		return nil, err
	}

	var previous *snapshot.Snapshot
	sequence := int64(1)
	latest, err := s.repo.Latest(ctx, project.ID)
	switch {
	case err == nil:
		previous = &latest.Snapshot
		sequence = latest.Sequence + 1
	case IsNotFound(err):
	default:
		return nil, err
	}

	revision := &Revision{
		ID:        s.newID(),
		ProjectID: project.ID,
		Sequence:  sequence,
		UserID:    userID,
		Action:    action,
		Snapshot:  current,
		Diff:      ComputeDiff(previous, current),
		CreatedAt: s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, revision)
	if err != nil {
		return nil, err
	}

	logging.WithProjectContext(s.logger, project.ID, action).Info("revisions.recorded",
		"revision_id", created.ID.String(),
		"sequence", created.Sequence,
		"added", len(created.Diff.Added),
		"removed", len(created.Diff.Removed),
		"changed", len(created.Diff.Changed),
	)
	return created, nil
}

// ListRevisions returns the history of projectID, newest first.
func (s *Service) ListRevisions(ctx context.Context, projectID int64) ([]*Revision, error) {
	return s.repo.List(ctx, projectID)
}

// GetRevision loads a single revision.
func (s *Service) GetRevision(ctx context.Context, id uuid.UUID) (*Revision, error) {
	return s.repo.Get(ctx, id)
}

// RestoreRevision rewrites project from revision. Title, description, theme
// and settings come from the snapshot; slug, status and visibility are kept.
// Blocks are rebuilt in snapshot order against the live catalog, and blocks
// whose definition no longer exists are dropped. Recording the follow-up
// ActionRestore revision is left to the caller.
func (s *Service) RestoreRevision(ctx context.Context, project *projects.Project, revision *Revision, catalog blocks.Catalog) (*projects.Project, error) {
	if project == nil {
		return nil, ErrProjectRequired
	}
	if revision == nil {
		return nil, ErrRevisionRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	snap := revision.Snapshot.Clone()

	if snap.Project.Title != "" {
		project.Title = snap.Project.Title
	}
	project.Description = snap.Project.Description
	project.Theme = snap.Project.Theme
	if project.Theme == nil {
		project.Theme = map[string]string{}
	}
	project.Settings = snap.Project.Settings
	if project.Settings == nil {
		project.Settings = map[string]any{}
	}

	logger := logging.WithProjectContext(s.logger, project.ID, ActionRestore)
	restored, err := rebuildBlocks(ctx, catalog, project.ID, snap.Blocks, true, logger)
	if err != nil {
		return nil, err
	}
	project.Blocks = restored
	project.UpdatedAt = s.now().UTC()

	logger.Info("revisions.restored", "revision_id", revision.ID.String(), "blocks", len(restored))
	return project, nil
}

// ImportSnapshot builds a new draft project from snap. The project and its
// blocks carry no ids; slug, title and visibility come from the snapshot
// with the usual defaults. Blocks are resolved against catalog the same way
// RestoreRevision does.
func (s *Service) ImportSnapshot(ctx context.Context, snap snapshot.Snapshot, catalog blocks.Catalog) (*projects.Project, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	snap = snap.Clone()
	now := s.now().UTC()

	project := &projects.Project{
		Title:       strings.TrimSpace(snap.Project.Title),
		Slug:        strings.TrimSpace(snap.Project.Slug),
		Description: snap.Project.Description,
		Theme:       snap.Project.Theme,
		Settings:    snap.Project.Settings,
		Status:      projects.StatusDraft,
		Visibility:  projects.Visibility(snap.Project.Visibility),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if project.Title == "" {
		project.Title = DefaultImportTitle
	}
	if project.Slug == "" {
		project.Slug = projects.Slugify(project.Title)
	}
	if project.Theme == nil {
		project.Theme = map[string]string{}
	}
	project.Visibility = project.EffectiveVisibility()
	s.resolver.EnsureLocales(project.EnsureSettings())

	logger := logging.WithProjectContext(s.logger, 0, ActionImport)
	imported, err := rebuildBlocks(ctx, catalog, 0, snap.Blocks, false, logger)
	if err != nil {
		return nil, err
	}
	project.Blocks = imported

	if err := projects.Validate(project); err != nil {
		return nil, err
	}
	logger.Info("revisions.imported", "slug", project.Slug, "blocks", len(imported))
	return project, nil
}

// rebuildBlocks turns snapshot blocks into instances bound to the live
// catalog. Unknown definition keys are dropped and an empty config falls back
// to the definition defaults. keepIDs carries persisted block ids over.
func rebuildBlocks(ctx context.Context, catalog blocks.Catalog, projectID int64, data []snapshot.BlockData, keepIDs bool, logger interfaces.Logger) ([]*blocks.Instance, error) {
	keys := make([]string, 0, len(data))
	for _, block := range data {
		keys = append(keys, block.DefinitionKey)
	}
	definitions, err := blocks.DefinitionsByKey(ctx, catalog, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*blocks.Instance, 0, len(data))
	for _, block := range data {
		definition, ok := definitions[block.DefinitionKey]
		if !ok {
			logger.Debug("revisions.block_dropped", "definition_key", block.DefinitionKey)
			continue
		}
		inst := &blocks.Instance{
			ProjectID:    projectID,
			DefinitionID: definition.ID,
			OrderIndex:   block.OrderIndex,
			Config:       block.Config,
			Translations: block.Translations,
			Definition:   definition,
		}
		if keepIDs && block.ID != nil {
			inst.ID = *block.ID
		}
		if len(inst.Config) == 0 {
			inst.Config = util.DeepCloneMap(definition.DefaultConfig)
		}
		if inst.Translations == nil {
			inst.Translations = map[string]map[string]any{}
		}
		out = append(out, inst)
	}
	return out, nil
}
