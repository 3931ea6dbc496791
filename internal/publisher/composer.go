package publisher

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/logging"
	"github.com/goliatone/go-renderly/internal/projects"
	"github.com/goliatone/go-renderly/internal/render"
	"github.com/goliatone/go-renderly/internal/snapshot"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

//go:embed templates/document.html
var shellFS embed.FS

// DefaultFooterText is shown when project settings carry no footer_text.
const DefaultFooterText = "Made with Renderly"

const documentCachePrefix = "document:"

var (
	ErrProjectRequired = errors.New("publisher: project is required")
	ErrEngineRequired  = errors.New("publisher: render engine is required")
)

// Composer assembles rendered blocks into complete HTML documents.
type Composer struct {
	engine     *render.Engine
	resolver   i18n.Resolver
	logger     interfaces.Logger
	footerText string
	now        func() time.Time
	cache      interfaces.CacheProvider
	cacheTTL   time.Duration
	shell      *template.Template
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the composer logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used for version tags.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFooterText sets the footer shown when settings carry none.
func WithFooterText(text string) Option {
	return func(c *Composer) {
		if text = strings.TrimSpace(text); text != "" {
			c.footerText = text
		}
	}
}

// WithDocumentCache caches full documents keyed by project, locale and
// snapshot checksum, so any edit misses naturally.
func WithDocumentCache(cache interfaces.CacheProvider, ttl time.Duration) Option {
	return func(c *Composer) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewComposer builds a composer around engine. Locale resolution follows the
// engine's resolver.
func NewComposer(engine *render.Engine, opts ...Option) (*Composer, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	shell, err := template.ParseFS(shellFS, "templates/document.html")
	if err != nil {
		return nil, fmt.Errorf("publisher: parse document shell: %w", err)
	}
	c := &Composer{
		engine:     engine,
		resolver:   engine.Resolver(),
		logger:     logging.NoOp(),
		footerText: DefaultFooterText,
		now:        time.Now,
		shell:      shell,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// page is everything the shell needs, independent of where blocks came from.
type page struct {
	title    string
	theme    map[string]string
	settings map[string]any
	blocks   []blocks.Renderable
}

// RenderProjectHTML renders project for the requested locale. Block failures
// render inline; an error means the project was nil or the shell is broken.
func (c *Composer) RenderProjectHTML(ctx context.Context, project *projects.Project, locale string) (string, error) {
	if project == nil {
		return "", ErrProjectRequired
	}
	settings := project.EnsureSettings()
	c.resolver.EnsureLocales(settings)

	cacheKey := c.documentKey(project, locale)
	if cached, ok := c.cached(ctx, cacheKey); ok {
		return cached, nil
	}

	html, err := c.renderPage(page{
		title:    project.Title,
		theme:    project.Theme,
		settings: settings,
		blocks:   project.Renderables(),
	}, locale)
	if err != nil {
		return "", err
	}
	c.store(ctx, cacheKey, html)
	return html, nil
}

// RenderSnapshotHTML renders a captured snapshot using the definitions it
// embeds, so historic revisions render as they were.
func (c *Composer) RenderSnapshotHTML(snap snapshot.Snapshot, locale string) (string, error) {
	snap = snap.Clone()
	if snap.Project.Settings == nil {
		snap.Project.Settings = map[string]any{}
	}
	c.resolver.EnsureLocales(snap.Project.Settings)

	renderables := make([]blocks.Renderable, 0, len(snap.Blocks))
	for _, block := range snap.Blocks {
		renderables = append(renderables, renderableFromSnapshot(block, block.Definition.Definition().View()))
	}
	return c.renderPage(page{
		title:    snap.Project.Title,
		theme:    snap.Project.Theme,
		settings: snap.Project.Settings,
		blocks:   renderables,
	}, locale)
}

func (c *Composer) renderPage(p page, locale string) (string, error) {
	selected := c.resolver.ResolveLocale(p.settings, locale)

	ordered := append([]blocks.Renderable(nil), p.blocks...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	var styleKeys []string
	styles := map[string]string{}
	parts := make([]string, 0, len(ordered)+1)
	for _, block := range ordered {
		rendered := c.engine.RenderBlock(block, selected, p.settings)
		parts = append(parts, rendered.HTML)
		if rendered.StyleKey == "" || rendered.StyleRules == "" {
			continue
		}
		if _, seen := styles[rendered.StyleKey]; seen {
			continue
		}
		styleKeys = append(styleKeys, rendered.StyleKey)
		styles[rendered.StyleKey] = `<style data-block-style="` + render.Escape(rendered.StyleKey) + "\">\n" +
			rendered.StyleRules + "\n</style>"
	}
	if len(styleKeys) > 0 {
		tags := make([]string, len(styleKeys))
		for i, key := range styleKeys {
			tags[i] = styles[key]
		}
		parts = append([]string{strings.Join(tags, "\n")}, parts...)
	}

	theme := ResolveTheme(p.theme)
	header, err := c.fragment("header", chrome{
		Title:      p.title,
		Background: theme.HeaderBackground,
		Color:      theme.HeaderText,
	})
	if err != nil {
		return "", err
	}
	footer, err := c.fragment("footer", chrome{
		Text:       c.footer(p.settings),
		Background: theme.FooterBackground,
		Color:      theme.FooterText,
	})
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = c.shell.ExecuteTemplate(&buf, "document", document{
		Lang:    selected,
		Title:   p.title,
		Theme:   theme,
		Header:  header,
		Footer:  footer,
		Content: template.HTML(strings.Join(parts, "\n")),
	})
	if err != nil {
		return "", fmt.Errorf("publisher: render document: %w", err)
	}
	c.logger.Debug("publisher.page_rendered", "blocks", len(ordered), "locale", selected, "styles", len(styleKeys))
	return buf.String(), nil
}

type chrome struct {
	Title      string
	Text       string
	Background template.CSS
	Color      template.CSS
}

type document struct {
	Lang    string
	Title   string
	Theme   Theme
	Header  template.HTML
	Footer  template.HTML
	Content template.HTML
}

func (c *Composer) fragment(name string, data chrome) (template.HTML, error) {
	var buf bytes.Buffer
	if err := c.shell.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("publisher: render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

func (c *Composer) footer(settings map[string]any) string {
	if settings != nil {
		if raw, ok := settings["footer_text"]; ok && raw != nil {
			if text := strings.TrimSpace(fmt.Sprint(raw)); text != "" {
				return text
			}
		}
	}
	return c.footerText
}

// VersionForProject tags a publication with the project id and the UTC time
// at second resolution. Two calls within one second return the same tag.
func (c *Composer) VersionForProject(project *projects.Project) string {
	var id int64
	if project != nil {
		id = project.ID
	}
	return fmt.Sprintf("%d-%s", id, c.now().UTC().Format("20060102150405"))
}

// SnapshotProject captures project with the composer's locale resolver.
func (c *Composer) SnapshotProject(project *projects.Project) (snapshot.Snapshot, error) {
	return snapshot.Capture(c.resolver, project)
}

// Publication is the outcome of Publish. Storing the document is up to the
// caller.
type Publication struct {
	ProjectID   int64     `json:"project_id"`
	Version     string    `json:"version"`
	Locale      string    `json:"locale"`
	HTML        string    `json:"html"`
	BlockCount  int       `json:"block_count"`
	PublishedAt time.Time `json:"published_at"`
}

// Publish renders project and tags the result with a version.
func (c *Composer) Publish(ctx context.Context, project *projects.Project, locale string) (*Publication, error) {
	html, err := c.RenderProjectHTML(ctx, project, locale)
	if err != nil {
		return nil, err
	}
	publication := &Publication{
		ProjectID:   project.ID,
		Version:     c.VersionForProject(project),
		Locale:      c.resolver.ResolveLocale(project.Settings, locale),
		HTML:        html,
		BlockCount:  len(project.Blocks),
		PublishedAt: c.now().UTC(),
	}
	logging.WithProjectContext(c.logger, project.ID, "publish").Info("publisher.published",
		"version", publication.Version,
		"block_count", publication.BlockCount,
	)
	return publication, nil
}

func (c *Composer) documentKey(project *projects.Project, locale string) string {
	if c.cache == nil {
		return ""
	}
	snap, err := snapshot.Capture(c.resolver, project)
	if err != nil {
		return ""
	}
	checksum, err := snap.Checksum()
	if err != nil {
		c.logger.Warn("publisher.cache_key_failed", "error", err)
		return ""
	}
	selected := c.resolver.ResolveLocale(project.Settings, locale)
	return fmt.Sprintf("%s%d:%s:%s", documentCachePrefix, project.ID, selected, checksum)
}

func (c *Composer) cached(ctx context.Context, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("publisher.cache_read_failed", "error", err)
		return "", false
	}
	switch typed := value.(type) {
	case string:
		return typed, typed != ""
	case []byte:
		return string(typed), len(typed) > 0
	default:
		return "", false
	}
}

func (c *Composer) store(ctx context.Context, key, html string) {
	if key == "" {
		return
	}
	if err := c.cache.Set(ctx, key, html, c.cacheTTL); err != nil {
		c.logger.Warn("publisher.cache_write_failed", "error", err)
	}
}

// InvalidateDocuments drops every cached document.
func (c *Composer) InvalidateDocuments(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear(ctx)
}

func renderableFromSnapshot(block snapshot.BlockData, definition blocks.DefinitionView) blocks.Renderable {
	renderable := blocks.Renderable{
		Definition:   definition,
		OrderIndex:   block.OrderIndex,
		Config:       block.Config,
		Translations: block.Translations,
	}
	if block.ID != nil {
		renderable.ID = *block.ID
	}
	return renderable
}
