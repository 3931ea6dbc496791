package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMaxListItemsInvalid       = errors.New("renderly config: render max list items must be positive")
	ErrCacheProviderUnknown      = errors.New("renderly config: cache provider is invalid")
	ErrRedisAddrRequired         = errors.New("renderly config: redis address is required when the redis cache is selected")
	ErrCacheTTLInvalid           = errors.New("renderly config: cache ttl must be zero or positive")
	ErrStorageProviderUnknown    = errors.New("renderly config: storage provider is invalid")
	ErrStorageDialectUnknown     = errors.New("renderly config: storage dialect is invalid")
	ErrStorageDSNRequired        = errors.New("renderly config: storage dsn is required for the bun provider")
	ErrLoggingProviderRequired   = errors.New("renderly config: logging provider is required")
	ErrLoggingProviderUnknown    = errors.New("renderly config: logging provider is invalid")
	ErrLoggingLevelInvalid       = errors.New("renderly config: logging level is invalid")
	ErrLoggingFormatInvalid      = errors.New("renderly config: logging format is invalid")
	ErrDefaultLocaleInvalid      = errors.New("renderly config: fallback locale cannot be empty")
	ErrDocumentCacheNeedsBackend = errors.New("renderly config: document caching requires a cache provider")
)

// Config aggregates rendering, publishing and adapter settings. Field names
// double as viper keys in the CLI.
type Config struct {
	FallbackLocale string          `mapstructure:"fallback_locale"`
	Render         RenderConfig    `mapstructure:"render"`
	Publisher      PublisherConfig `mapstructure:"publisher"`
	Cache          CacheConfig     `mapstructure:"cache"`
	Storage        StorageConfig   `mapstructure:"storage"`
	Logging        LoggingConfig   `mapstructure:"logging"`
}

// RenderConfig tunes the block template engine.
type RenderConfig struct {
	// MaxListItems caps how many entries list helpers expose to a template.
	MaxListItems     int    `mapstructure:"max_list_items"`
	SanitizeRichText bool   `mapstructure:"sanitize_rich_text"`
	PlaceholderHint  string `mapstructure:"placeholder_hint"`
	ValidatePayloads bool   `mapstructure:"validate_payloads"`
}

// PublisherConfig tunes the page composer.
type PublisherConfig struct {
	FooterText     string        `mapstructure:"footer_text"`
	CacheDocuments bool          `mapstructure:"cache_documents"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// CacheConfig selects the rendered document cache backend.
type CacheConfig struct {
	Provider      string `mapstructure:"provider"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

// StorageConfig selects where block definitions and revisions live.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	Dialect  string `mapstructure:"dialect"`
	DSN      string `mapstructure:"dsn"`
	// CacheRepositories wraps bun repositories with go-repository-cache.
	CacheRepositories bool `mapstructure:"cache_repositories"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `mapstructure:"provider"`
	Level     string   `mapstructure:"level"`
	Format    string   `mapstructure:"format"`
	AddSource bool     `mapstructure:"add_source"`
	Focus     []string `mapstructure:"focus"`
}

// DefaultConfig returns defaults suitable for local rendering.
func DefaultConfig() Config {
	return Config{
		FallbackLocale: "ru",
		Render: RenderConfig{
			MaxListItems:    200,
			PlaceholderHint: "Add media in the editor",
		},
		Publisher: PublisherConfig{
			FooterText: "Made with Renderly",
			CacheTTL:   10 * time.Minute,
		},
		Cache: CacheConfig{
			Provider:  "memory",
			KeyPrefix: "renderly:",
		},
		Storage: StorageConfig{
			Provider: "memory",
			Dialect:  "sqlite",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.FallbackLocale) == "" {
		return ErrDefaultLocaleInvalid
	}
	if cfg.Render.MaxListItems <= 0 {
		return ErrMaxListItemsInvalid
	}

	cacheProvider := normalize(cfg.Cache.Provider)
	switch cacheProvider {
	case "", "none", "memory":
	case "redis":
		if strings.TrimSpace(cfg.Cache.RedisAddr) == "" {
			return ErrRedisAddrRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrCacheProviderUnknown, cacheProvider)
	}
	if cfg.Publisher.CacheTTL < 0 {
		return ErrCacheTTLInvalid
	}
	if cfg.Publisher.CacheDocuments && (cacheProvider == "" || cacheProvider == "none") {
		return ErrDocumentCacheNeedsBackend
	}

	storageProvider := normalize(cfg.Storage.Provider)
	switch storageProvider {
	case "", "memory":
	case "bun":
		if !isSupportedDialect(cfg.Storage.Dialect) {
			return fmt.Errorf("%w: %s", ErrStorageDialectUnknown, cfg.Storage.Dialect)
		}
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return ErrStorageDSNRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, storageProvider)
	}

	provider := normalize(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedDialect(dialect string) bool {
	switch normalize(dialect) {
	case "sqlite", "sqlite3", "postgres", "pg":
		return true
	default:
		return false
	}
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch normalize(level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch normalize(format) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
