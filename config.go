package renderly

import "github.com/goliatone/go-renderly/internal/runtimeconfig"

var (
	ErrMaxListItemsInvalid       = runtimeconfig.ErrMaxListItemsInvalid
	ErrCacheProviderUnknown      = runtimeconfig.ErrCacheProviderUnknown
	ErrRedisAddrRequired         = runtimeconfig.ErrRedisAddrRequired
	ErrCacheTTLInvalid           = runtimeconfig.ErrCacheTTLInvalid
	ErrStorageProviderUnknown    = runtimeconfig.ErrStorageProviderUnknown
	ErrStorageDialectUnknown     = runtimeconfig.ErrStorageDialectUnknown
	ErrStorageDSNRequired        = runtimeconfig.ErrStorageDSNRequired
	ErrLoggingProviderRequired   = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown    = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid       = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid      = runtimeconfig.ErrLoggingFormatInvalid
	ErrDefaultLocaleInvalid      = runtimeconfig.ErrDefaultLocaleInvalid
	ErrDocumentCacheNeedsBackend = runtimeconfig.ErrDocumentCacheNeedsBackend
)

type (
	Config          = runtimeconfig.Config
	RenderConfig    = runtimeconfig.RenderConfig
	PublisherConfig = runtimeconfig.PublisherConfig
	CacheConfig     = runtimeconfig.CacheConfig
	StorageConfig   = runtimeconfig.StorageConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
