package renderly_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-renderly"
	"github.com/goliatone/go-renderly/internal/di"
	"github.com/goliatone/go-renderly/internal/logging/console"
)

func newModule(t *testing.T) *renderly.Module {
	t.Helper()
	var sink strings.Builder
	module, err := renderly.New(renderly.DefaultConfig(),
		di.WithLoggerProvider(console.NewProvider(console.Options{Writer: &sink})),
		di.WithClock(func() time.Time { return time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = module.Close() })
	return module
}

func conferenceProject(t *testing.T, module *renderly.Module) *renderly.Project {
	t.Helper()
	ctx := context.Background()
	hero, err := module.Definition(ctx, "hero")
	if err != nil {
		t.Fatalf("hero: %v", err)
	}
	faq, err := module.Definition(ctx, "faq")
	if err != nil {
		t.Fatalf("faq: %v", err)
	}
	return &renderly.Project{
		ID:    11,
		Title: "Summit",
		Slug:  renderly.Slugify("Summit 2026"),
		Settings: map[string]any{
			"locales": map[string]any{"default_locale": "en", "locales": []any{"en", "de"}},
		},
		Blocks: []*renderly.BlockInstance{
			{ID: 1, OrderIndex: 0, Definition: hero, DefinitionID: hero.ID,
				Config:       map[string]any{"headline": "Welcome"},
				Translations: map[string]map[string]any{"de": {"headline": "Willkommen"}}},
			{ID: 2, OrderIndex: 1, Definition: faq, DefinitionID: faq.ID,
				Config: map[string]any{"items": []any{map[string]any{"question": "When?", "answer": "May"}}}},
		},
	}
}

func TestModuleRendersLocalisedDocuments(t *testing.T) {
	module := newModule(t)
	project := conferenceProject(t, module)
	ctx := context.Background()

	english, err := module.RenderProjectHTML(ctx, project, "EN")
	if err != nil {
		t.Fatalf("render en: %v", err)
	}
	if !strings.Contains(english, `lang="en"`) || !strings.Contains(english, "Welcome") {
		t.Fatalf("expected english document")
	}
	german, err := module.RenderProjectHTML(ctx, project, "de")
	if err != nil {
		t.Fatalf("render de: %v", err)
	}
	if !strings.Contains(german, "Willkommen") || !strings.Contains(german, "When?") {
		t.Fatalf("expected german hero with base faq")
	}
	fallback, _ := module.RenderProjectHTML(ctx, project, "fr")
	if !strings.Contains(fallback, `lang="en"`) {
		t.Fatalf("expected unsupported locale to fall back to the default")
	}

	if got := module.BlockPayloadForLocale(project.Blocks[0], "de", project.Settings); got["headline"] != "Willkommen" {
		t.Fatalf("unexpected payload %v", got)
	}
	if got := module.ResolveLocale(project.Settings, "DE "); got != "de" {
		t.Fatalf("expected de, got %q", got)
	}
	locales := module.SanitizeLocales("", []string{" DE", "en", "de"})
	if !reflect.DeepEqual(locales.Codes, []string{"de", "en"}) || locales.Default != "de" {
		t.Fatalf("unexpected sanitized locales %+v", locales)
	}
}

func TestModulePublish(t *testing.T) {
	module := newModule(t)
	project := conferenceProject(t, module)

	publication, err := module.Publish(context.Background(), project, "")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if publication.Version != "11-20260402093000" || publication.Version != module.VersionForProject(project) {
		t.Fatalf("unexpected version %q", publication.Version)
	}
	if publication.BlockCount != 2 || publication.Locale != "en" {
		t.Fatalf("unexpected publication %+v", publication)
	}
}

func TestModuleRevisionWorkflow(t *testing.T) {
	module := newModule(t)
	project := conferenceProject(t, module)
	ctx := context.Background()

	first, err := module.RecordRevision(ctx, project, nil, "project.create")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	project.Blocks[0].Config["headline"] = "Changed"
	project.Blocks = project.Blocks[:1]
	second, err := module.RecordRevision(ctx, project, nil, "block.update")
	if err != nil {
		t.Fatalf("record second: %v", err)
	}
	if !reflect.DeepEqual(second.Diff.Changed, []string{"hero"}) || !reflect.DeepEqual(second.Diff.Removed, []string{"faq"}) {
		t.Fatalf("unexpected diff %+v", second.Diff)
	}

	restored, err := module.RestoreRevision(ctx, project, first)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored.Blocks) != 2 || restored.Blocks[0].Config["headline"] != "Welcome" {
		t.Fatalf("expected first revision restored, got %+v", restored.Blocks)
	}
	third, err := module.RecordRevision(ctx, restored, nil, renderly.ActionRestore)
	if err != nil {
		t.Fatalf("record restore: %v", err)
	}
	if !reflect.DeepEqual(third.Diff.Added, []string{"faq"}) {
		t.Fatalf("expected faq re-added, got %+v", third.Diff)
	}

	history, err := module.ListRevisions(ctx, project.ID)
	if err != nil || len(history) != 3 || history[0].ID != third.ID {
		t.Fatalf("expected newest first history, got %d %v", len(history), err)
	}
	stored, err := module.GetRevision(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	doc, err := module.RenderSnapshotHTML(stored.Snapshot, "")
	if err != nil || !strings.Contains(doc, "Welcome") {
		t.Fatalf("expected stored snapshot to render, got %v", err)
	}

	snap, err := module.SnapshotProject(restored)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if diff := renderly.ComputeDiff(&stored.Snapshot, snap); !diff.Empty() {
		t.Fatalf("expected restored project to match the first revision, got %+v", diff)
	}
}

func TestModulePreview(t *testing.T) {
	module := newModule(t)
	project := conferenceProject(t, module)

	doc, err := module.RenderPreviewHTML(project, renderly.PreviewOverrides{
		Blocks:  []map[string]any{{"definition_key": "hero", "config": map[string]any{"headline": "Draft"}}},
		Project: map[string]any{"title": "Draft summit"},
	}, "")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !strings.Contains(doc, "Draft summit") || !strings.Contains(doc, "Draft") || strings.Contains(doc, "When?") {
		t.Fatalf("expected preview to replace blocks and title")
	}
	if project.Title != "Summit" {
		t.Fatalf("preview must not mutate the project")
	}
}

func TestModuleCatalog(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()

	defs, err := module.Definitions(ctx)
	if err != nil || len(defs) == 0 {
		t.Fatalf("expected built-in definitions, got %d %v", len(defs), err)
	}
	custom, err := module.RegisterDefinition(ctx, &renderly.BlockDefinition{
		Key:            "banner",
		Name:           "Banner",
		TemplateMarkup: `<p>{{ payload.text }}</p>`,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if got, err := module.Definition(ctx, "banner"); err != nil || got.ID != custom.ID {
		t.Fatalf("expected registered definition, got %+v %v", got, err)
	}
}

func TestNilModule(t *testing.T) {
	var module *renderly.Module
	if _, err := module.RenderProjectHTML(context.Background(), nil, ""); !errors.Is(err, renderly.ErrModuleNotInitialised) {
		t.Fatalf("expected ErrModuleNotInitialised, got %v", err)
	}
	if got := module.ResolveLocale(nil, "en"); got != renderly.FallbackLocale {
		t.Fatalf("expected fallback locale, got %q", got)
	}
	if err := module.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestModuleImportSnapshot(t *testing.T) {
	module := newModule(t)
	ctx := context.Background()

	snap, err := module.SnapshotProject(conferenceProject(t, module))
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	snap.Blocks[1].DefinitionKey = "retired"

	imported, err := module.ImportSnapshot(ctx, snap)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.Title != "Summit" || imported.Slug != "summit-2026" || len(imported.Blocks) != 1 {
		t.Fatalf("unexpected import %q %q %d", imported.Title, imported.Slug, len(imported.Blocks))
	}
	doc, err := module.RenderProjectHTML(ctx, imported, "de")
	if err != nil || !strings.Contains(doc, "Willkommen") {
		t.Fatalf("expected imported project to render translations, got %v", err)
	}
	if _, err := module.RecordRevision(ctx, imported, nil, renderly.ActionImport); err != nil {
		t.Fatalf("record import: %v", err)
	}

	var nilModule *renderly.Module
	if _, err := nilModule.ImportSnapshot(ctx, snap); !errors.Is(err, renderly.ErrModuleNotInitialised) {
		t.Fatalf("expected ErrModuleNotInitialised, got %v", err)
	}
}
