package renderly

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/di"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/publisher"
	"github.com/goliatone/go-renderly/internal/revisions"
	"github.com/goliatone/go-renderly/internal/snapshot"
)

// Project exports the project aggregate rendered by the module.
type Project = projects.Project

// BlockInstance exports a placed block.
type BlockInstance = blocks.Instance

// BlockDefinition exports a catalog entry.
type BlockDefinition = blocks.Definition

// Snapshot exports the canonical structural copy of a project.
type Snapshot = snapshot.Snapshot

// Revision exports one entry of a project's history.
type Revision = revisions.Revision

// Diff exports the change summary between two snapshots.
type Diff = revisions.Diff

// Publication exports the result of Publish.
type Publication = publisher.Publication

// PreviewOverrides exports the unsaved editor state accepted by previews.
type PreviewOverrides = publisher.PreviewOverrides

// Locales exports a normalised locale configuration.
type Locales = i18n.Locales

const (
	// ActionRestore is the action to record after RestoreRevision.
	ActionRestore = revisions.ActionRestore
	// ActionImport is the action to record after ImportSnapshot.
	ActionImport = revisions.ActionImport
)

var ErrModuleNotInitialised = errors.New("renderly: module is not initialised")

// Module is the top level rendering runtime.
type Module struct {
	container *di.Container
}

// New constructs a module from cfg and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	if m == nil {
		return nil
	}
	return m.container
}

// Close releases connections opened by the module.
func (m *Module) Close() error {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.Close()
}

func (m *Module) ready() error {
	if m == nil || m.container == nil {
		return ErrModuleNotInitialised
	}
	return nil
}

// RenderProjectHTML renders project as a complete HTML document in the
// resolved locale.
func (m *Module) RenderProjectHTML(ctx context.Context, project *Project, locale string) (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}
	return m.container.Composer().RenderProjectHTML(ctx, project, locale)
}

// RenderPreviewHTML renders project with unsaved overrides applied.
func (m *Module) RenderPreviewHTML(project *Project, overrides PreviewOverrides, locale string) (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}
	return m.container.Composer().RenderPreviewHTML(project, overrides, locale)
}

// RenderSnapshotHTML renders a stored snapshot, such as a revision, without
// touching the live catalog.
func (m *Module) RenderSnapshotHTML(snap Snapshot, locale string) (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}
	return m.container.Composer().RenderSnapshotHTML(snap, locale)
}

// SnapshotProject captures an independent structural copy of project.
func (m *Module) SnapshotProject(project *Project) (Snapshot, error) {
	if err := m.ready(); err != nil {
		return Snapshot{}, err
	}
	return m.container.Composer().SnapshotProject(project)
}

// VersionForProject returns the publish version tag for project.
func (m *Module) VersionForProject(project *Project) string {
	if m.ready() != nil {
		return ""
	}
	return m.container.Composer().VersionForProject(project)
}

// Publish renders project and tags the document with a version.
func (m *Module) Publish(ctx context.Context, project *Project, locale string) (*Publication, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.Composer().Publish(ctx, project, locale)
}

// InvalidateDocuments drops every cached document.
func (m *Module) InvalidateDocuments(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	return m.container.Composer().InvalidateDocuments(ctx)
}

// RecordRevision appends a snapshot of project and its diff to the history.
func (m *Module) RecordRevision(ctx context.Context, project *Project, userID *int64, action string) (*Revision, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.RevisionService().RecordRevision(ctx, project, userID, action)
}

// RestoreRevision rewrites project from revision against the module catalog.
func (m *Module) RestoreRevision(ctx context.Context, project *Project, revision *Revision) (*Project, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.RevisionService().RestoreRevision(ctx, project, revision, m.container.Catalog())
}

// ImportSnapshot builds a new draft project from an exported snapshot,
// resolving its blocks against the module catalog.
func (m *Module) ImportSnapshot(ctx context.Context, snap Snapshot) (*Project, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.RevisionService().ImportSnapshot(ctx, snap, m.container.Catalog())
}

// ListRevisions returns the history of projectID, newest first.
func (m *Module) ListRevisions(ctx context.Context, projectID int64) ([]*Revision, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.RevisionService().ListRevisions(ctx, projectID)
}

// GetRevision loads one revision.
func (m *Module) GetRevision(ctx context.Context, id uuid.UUID) (*Revision, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.RevisionService().GetRevision(ctx, id)
}

// ComputeDiff compares two snapshots. A nil previous is the first revision
// of a project.
func ComputeDiff(previous *Snapshot, current Snapshot) Diff {
	return revisions.ComputeDiff(previous, current)
}

// Definition resolves a block definition by key.
func (m *Module) Definition(ctx context.Context, key string) (*BlockDefinition, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.Catalog().Definition(ctx, key)
}

// Definitions lists the catalog ordered by key.
func (m *Module) Definitions(ctx context.Context) ([]*BlockDefinition, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.Catalog().List(ctx)
}

// RegisterDefinition upserts a definition by key.
func (m *Module) RegisterDefinition(ctx context.Context, definition *BlockDefinition) (*BlockDefinition, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.container.Catalog().Register(ctx, definition)
}

// Slugify normalises a title into a project slug.
func Slugify(title string) string {
	return projects.Slugify(title)
}
