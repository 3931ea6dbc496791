package di

import (
	"context"
	"errors"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-renderly/internal/adapters/memorycache"
	"github.com/goliatone/go-renderly/internal/adapters/noop"
	"github.com/goliatone/go-renderly/internal/adapters/rediscache"
	"github.com/goliatone/go-renderly/internal/blocks"
	"github.com/goliatone/go-renderly/internal/i18n"
	"github.com/goliatone/go-renderly/internal/logging"
	"github.com/goliatone/go-renderly/internal/logging/console"
	"github.com/goliatone/go-renderly/internal/logging/gologger"
	"github.com/goliatone/go-renderly/internal/markdown"
	"github.com/goliatone/go-renderly/internal/publisher"
	"github.com/goliatone/go-renderly/internal/render"
	"github.com/goliatone/go-renderly/internal/revisions"
	"github.com/goliatone/go-renderly/internal/runtimeconfig"
	"github.com/goliatone/go-renderly/internal/storage"
	"github.com/goliatone/go-renderly/internal/validation"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// Container wires the renderer, composer and revision services from a
// runtime config. Options override any adapter the config would build.
type Container struct {
	Config runtimeconfig.Config

	loggerProvider interfaces.LoggerProvider
	resolver       i18n.Resolver
	cache          interfaces.CacheProvider
	sanitizer      interfaces.RichTextSanitizer
	markdown       interfaces.MarkdownRenderer
	now            func() time.Time

	bunDB         *bun.DB
	ownsDB        bool
	cacheService  repocache.CacheService
	keySerializer repocache.KeySerializer

	catalog      blocks.Registry
	revisionRepo revisions.Repository

	engine      *render.Engine
	composer    *publisher.Composer
	revisionSvc *revisions.Service

	closers []func() error
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithLoggerProvider overrides the provider selected by Config.Logging.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		if provider != nil {
			c.loggerProvider = provider
		}
	}
}

// WithCache overrides the document cache selected by Config.Cache.
func WithCache(cache interfaces.CacheProvider) Option {
	return func(c *Container) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithRepositoryCache sets the go-repository-cache service used to wrap bun
// repositories.
func WithRepositoryCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithBunDB supplies an open database, switching storage to bun. The
// container does not close it.
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCatalog overrides the block definition catalog.
func WithCatalog(catalog blocks.Registry) Option {
	return func(c *Container) {
		if catalog != nil {
			c.catalog = catalog
		}
	}
}

// WithRevisionRepository overrides the revision store.
func WithRevisionRepository(repo revisions.Repository) Option {
	return func(c *Container) {
		if repo != nil {
			c.revisionRepo = repo
		}
	}
}

// WithSanitizer overrides the rich-text sanitizer.
func WithSanitizer(sanitizer interfaces.RichTextSanitizer) Option {
	return func(c *Container) {
		c.sanitizer = sanitizer
	}
}

// WithMarkdownRenderer overrides the goldmark renderer.
func WithMarkdownRenderer(renderer interfaces.MarkdownRenderer) Option {
	return func(c *Container) {
		if renderer != nil {
			c.markdown = renderer
		}
	}
}

// WithClock fixes the clock shared by the composer and revision service.
func WithClock(now func() time.Time) Option {
	return func(c *Container) {
		if now != nil {
			c.now = now
		}
	}
}

// NewContainer validates cfg and builds every service. Storage is opened and
// migrated, and the built-in block catalog is seeded when it is empty.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		Config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.resolver = i18n.NewResolver(cfg.FallbackLocale)

	steps := []func() error{
		c.configureLogging,
		c.configureCache,
		c.configureStorage,
		c.configureRepositories,
		c.configureEngine,
		c.configureServices,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil {
		return nil
	}
	cfg := c.Config.Logging
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(cfg)
		if err != nil {
			return err
		}
		c.loggerProvider = provider
	default:
		opts := console.Options{}
		if level, ok := console.ParseLevel(cfg.Level); ok {
			opts.MinLevel = &level
		}
		c.loggerProvider = console.NewProvider(opts)
	}
	return nil
}

func (c *Container) configureCache() error {
	if c.cache != nil {
		return nil
	}
	cfg := c.Config.Cache
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "memory":
		c.cache = memorycache.New(memorycache.WithClock(c.now))
	case "redis":
		cache, err := rediscache.NewFromOptions(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			rediscache.WithPrefix(cfg.KeyPrefix),
			rediscache.WithLogger(logging.PublisherLogger(c.loggerProvider)),
		)
		if err != nil {
			return err
		}
		c.cache = cache
		c.closers = append(c.closers, cache.Close)
	default:
		c.cache = noop.Cache()
	}
	return nil
}

func (c *Container) configureStorage() error {
	cfg := c.Config.Storage
	ctx := context.Background()
	if c.bunDB == nil && strings.EqualFold(strings.TrimSpace(cfg.Provider), "bun") {
		db, err := storage.Open(ctx, cfg.Dialect, cfg.DSN)
		if err != nil {
			return err
		}
		c.bunDB = db
		c.ownsDB = true
	}
	if c.bunDB == nil {
		return nil
	}
	if err := storage.Migrate(ctx, c.bunDB); err != nil {
		return err
	}
	if cfg.CacheRepositories {
		c.configureRepositoryCache()
	}
	return nil
}

func (c *Container) configureRepositoryCache() {
	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if ttl := c.Config.Publisher.CacheTTL; ttl > 0 {
			cfg.TTL = ttl
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}
	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories() error {
	if c.catalog == nil {
		switch {
		case c.bunDB != nil && c.cacheService != nil:
			c.catalog = blocks.NewBunCatalogWithCache(c.bunDB, c.cacheService, c.keySerializer)
		case c.bunDB != nil:
			c.catalog = blocks.NewBunCatalog(c.bunDB)
		default:
			c.catalog = blocks.NewMemoryCatalog(blocks.WithMemoryClock(c.now))
		}
		if err := c.seedCatalog(); err != nil {
			return err
		}
	}
	if c.revisionRepo == nil {
		switch {
		case c.bunDB != nil && c.cacheService != nil:
			c.revisionRepo = revisions.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
		case c.bunDB != nil:
			c.revisionRepo = revisions.NewBunRepository(c.bunDB)
		default:
			c.revisionRepo = revisions.NewMemoryRepository()
		}
	}
	return nil
}

// seedCatalog registers the built-in definitions that are not present yet,
// leaving author edits to existing keys untouched.
func (c *Container) seedCatalog() error {
	ctx := context.Background()
	defs, err := blocks.BuiltinDefinitions()
	if err != nil {
		return err
	}
	missing := make([]*blocks.Definition, 0, len(defs))
	for _, def := range defs {
		_, err := c.catalog.Definition(ctx, def.Key)
		switch {
		case err == nil:
		case blocks.IsNotFound(err):
			missing = append(missing, def)
		default:
			return err
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := blocks.Seed(ctx, c.catalog, missing); err != nil {
		return err
	}
	logging.CatalogLogger(c.loggerProvider).Info("catalog.seeded", "definitions", len(missing))
	return nil
}

func (c *Container) configureEngine() error {
	if c.sanitizer == nil && c.Config.Render.SanitizeRichText {
		c.sanitizer = markdown.NewUGCSanitizer()
	}
	if c.markdown == nil {
		var mdOpts []markdown.Option
		if c.sanitizer != nil {
			mdOpts = append(mdOpts, markdown.WithRawHTML())
		}
		c.markdown = markdown.NewGoldmarkRenderer(mdOpts...)
	}

	opts := []render.Option{
		render.WithLogger(logging.RenderLogger(c.loggerProvider)),
		render.WithResolver(c.resolver),
		render.WithMaxListItems(c.Config.Render.MaxListItems),
		render.WithPlaceholderHint(c.Config.Render.PlaceholderHint),
		render.WithMarkdown(c.markdown),
	}
	if c.sanitizer != nil {
		opts = append(opts, render.WithSanitizer(c.sanitizer))
	}
	if c.Config.Render.ValidatePayloads {
		opts = append(opts, render.WithPayloadValidator(validation.NewChecker()))
	}
	engine, err := render.NewEngine(opts...)
	if err != nil {
		return err
	}
	c.engine = engine
	return nil
}

func (c *Container) configureServices() error {
	composerOpts := []publisher.Option{
		publisher.WithLogger(logging.PublisherLogger(c.loggerProvider)),
		publisher.WithClock(c.now),
		publisher.WithFooterText(c.Config.Publisher.FooterText),
	}
	if c.Config.Publisher.CacheDocuments {
		composerOpts = append(composerOpts, publisher.WithDocumentCache(c.cache, c.Config.Publisher.CacheTTL))
	}
	composer, err := publisher.NewComposer(c.engine, composerOpts...)
	if err != nil {
		return err
	}
	c.composer = composer

	svc, err := revisions.NewService(c.revisionRepo,
		revisions.WithLogger(logging.RevisionsLogger(c.loggerProvider)),
		revisions.WithResolver(c.resolver),
		revisions.WithClock(c.now),
	)
	if err != nil {
		return err
	}
	c.revisionSvc = svc
	return nil
}

// Close releases connections the container opened itself.
func (c *Container) Close() error {
	var errs []error
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if c.ownsDB && c.bunDB != nil {
		if err := c.bunDB.Close(); err != nil {
			errs = append(errs, err)
		}
		c.bunDB = nil
	}
	return errors.Join(errs...)
}

func (c *Container) LoggerProvider() interfaces.LoggerProvider { return c.loggerProvider }
func (c *Container) Resolver() i18n.Resolver                   { return c.resolver }
func (c *Container) Cache() interfaces.CacheProvider           { return c.cache }
func (c *Container) BunDB() *bun.DB                            { return c.bunDB }
func (c *Container) Catalog() blocks.Registry                  { return c.catalog }
func (c *Container) RevisionRepository() revisions.Repository  { return c.revisionRepo }
func (c *Container) Engine() *render.Engine                    { return c.engine }
func (c *Container) Composer() *publisher.Composer             { return c.composer }
func (c *Container) RevisionService() *revisions.Service       { return c.revisionSvc }
