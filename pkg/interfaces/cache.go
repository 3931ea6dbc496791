package interfaces

import (
	"context"
	"time"
)

// CacheProvider stores rendered documents for the page composer. A miss is
// (nil, nil). Keys arrive without a backend prefix; providers that share a
// store with other data namespace them and Clear only their own keys. A ttl
// of zero or less keeps the entry until it is deleted or cleared.
type CacheProvider interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
