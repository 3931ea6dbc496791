package di_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/goliatone/go-renderly/internal/adapters/memorycache"
	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/di"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/revisions"
	"github.com/goliatone/go-renderly/internal/runtimeconfig"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

type recordedEntry struct {
	level  string
	msg    string
	fields map[string]any
}

type recordingProvider struct {
	mu      sync.Mutex
	entries []recordedEntry
}

func (p *recordingProvider) GetLogger(name string) interfaces.Logger {
	return &recordingLogger{provider: p, fields: map[string]any{"logger": name}}
}

func (p *recordingProvider) find(msg string) *recordedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.entries {
		if p.entries[i].msg == msg {
			return &p.entries[i]
		}
	}
	return nil
}

type recordingLogger struct {
	provider *recordingProvider
	fields   map[string]any
}

func (l *recordingLogger) log(level, msg string, args ...any) {
	fields := make(map[string]any, len(l.fields)+len(args)/2)
	for k, v := range l.fields {
		fields[k] = v
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	l.provider.mu.Lock()
	l.provider.entries = append(l.provider.entries, recordedEntry{level: level, msg: msg, fields: fields})
	l.provider.mu.Unlock()
}

func (l *recordingLogger) Trace(msg string, args ...any) { l.log("trace", msg, args...) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("debug", msg, args...) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("info", msg, args...) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args...) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("error", msg, args...) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.log("fatal", msg, args...) }

func (l *recordingLogger) WithContext(context.Context) interfaces.Logger { return l }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &recordingLogger{provider: l.provider, fields: merged}
}

func heroProject(t *testing.T, catalog blocks.Catalog) *projects.Project {
	t.Helper()
	hero, err := catalog.Definition(context.Background(), "hero")
	if err != nil {
		t.Fatalf("hero definition: %v", err)
	}
	return &projects.Project{
		ID:    7,
		Title: "Launch",
		Slug:  "launch",
		Blocks: []*blocks.Instance{
			{ID: 1, Definition: hero, DefinitionID: hero.ID, Config: map[string]any{"headline": "Hello"}},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Render.MaxListItems = 0
	if _, err := di.NewContainer(cfg); !errors.Is(err, runtimeconfig.ErrMaxListItemsInvalid) {
		t.Fatalf("expected ErrMaxListItemsInvalid, got %v", err)
	}
}

func TestNewContainerMemoryDefaults(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Publisher.CacheDocuments = true
	rec := &recordingProvider{}

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(rec), di.WithClock(fixedClock))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	entry := rec.find("catalog.seeded")
	if entry == nil {
		t.Fatalf("expected catalog.seeded log entry")
	}
	if got := entry.fields["module"]; got != "renderly.catalog" {
		t.Fatalf("expected catalog module field, got %v", got)
	}

	defs, err := container.Catalog().List(context.Background())
	if err != nil || len(defs) == 0 || entry.fields["definitions"] != len(defs) {
		t.Fatalf("expected seeded catalog, got %d %v (%v)", len(defs), err, entry.fields)
	}

	project := heroProject(t, container.Catalog())
	doc, err := container.Composer().RenderProjectHTML(context.Background(), project, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(doc, "Hello") {
		t.Fatalf("expected rendered headline in document")
	}
	cache, ok := container.Cache().(*memorycache.Cache)
	if !ok || cache.Len() != 1 {
		t.Fatalf("expected the document cached in memory")
	}

	rev, err := container.RevisionService().RecordRevision(context.Background(), project, nil, "project.create")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rev.CreatedAt.Equal(fixedClock()) {
		t.Fatalf("expected container clock on revisions, got %v", rev.CreatedAt)
	}
	if _, ok := container.RevisionRepository().(*revisions.MemoryRepository); !ok {
		t.Fatalf("expected memory revision repository")
	}
}

func TestNewContainerKeepsExistingDefinitions(t *testing.T) {
	catalog := blocks.NewMemoryCatalog()
	custom := &blocks.Definition{Key: "hero", Name: "Custom hero", TemplateMarkup: "<h1>{{ payload.headline }}</h1>"}
	if _, err := catalog.Register(context.Background(), custom); err != nil {
		t.Fatalf("register: %v", err)
	}

	container, err := di.NewContainer(runtimeconfig.DefaultConfig(), di.WithCatalog(catalog), di.WithLoggerProvider(&recordingProvider{}))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	hero, err := container.Catalog().Definition(context.Background(), "hero")
	if err != nil || hero.Name != "Custom hero" {
		t.Fatalf("expected injected catalog untouched, got %+v %v", hero, err)
	}
}

func TestNewContainerBunStorage(t *testing.T) {
	cfg := runtimeconfig.DefaultConfig()
	cfg.Storage.Provider = "bun"
	cfg.Storage.Dialect = "sqlite"
	cfg.Storage.DSN = "file:di_container?mode=memory&cache=shared"
	cfg.Storage.CacheRepositories = true

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(&recordingProvider{}))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	if container.BunDB() == nil {
		t.Fatalf("expected bun database")
	}
	if _, ok := container.Catalog().(*blocks.BunCatalog); !ok {
		t.Fatalf("expected bun catalog, got %T", container.Catalog())
	}
	project := heroProject(t, container.Catalog())
	ctx := context.Background()
	if _, err := container.RevisionService().RecordRevision(ctx, project, nil, "project.create"); err != nil {
		t.Fatalf("record: %v", err)
	}
	history, err := container.RevisionService().ListRevisions(ctx, project.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("expected one stored revision, got %d %v", len(history), err)
	}
}

func TestNewContainerRedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := runtimeconfig.DefaultConfig()
	cfg.Cache.Provider = "redis"
	cfg.Cache.RedisAddr = mr.Addr()
	cfg.Publisher.CacheDocuments = true

	container, err := di.NewContainer(cfg, di.WithLoggerProvider(&recordingProvider{}))
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	t.Cleanup(func() { _ = container.Close() })

	project := heroProject(t, container.Catalog())
	if _, err := container.Composer().RenderProjectHTML(context.Background(), project, ""); err != nil {
		t.Fatalf("render: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "renderly:document:7:") {
		t.Fatalf("expected one cached document key, got %v", keys)
	}
}
