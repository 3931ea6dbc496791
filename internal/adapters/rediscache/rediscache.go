// Package rediscache stores rendered documents in Redis (or Valkey).
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-renderly/internal/logging"
	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// DefaultPrefix namespaces keys written by the cache.
const DefaultPrefix = "renderly:"

const scanBatch = 100

var ErrClientRequired = errors.New("rediscache: client is required")

// Cache implements interfaces.CacheProvider on a Redis client. Strings and
// byte slices are stored verbatim; other values are JSON encoded. Get always
// returns the stored string.
type Cache struct {
	client redis.UniversalClient
	prefix string
	logger interfaces.Logger
}

var _ interfaces.CacheProvider = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithLogger sets the logger used for scan and delete diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New wraps client.
func New(client redis.UniversalClient, opts ...Option) (*Cache, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	c := &Cache{
		client: client,
		prefix: DefaultPrefix,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// NewFromOptions dials a single-node client.
func NewFromOptions(addr, password string, db int, opts ...Option) (*Cache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return New(client, opts...)
}

func (c *Cache) key(key string) string {
	return c.prefix + key
}

func (c *Cache) Get(ctx context.Context, key string) (any, error) {
	value, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rediscache: get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value with ttl. A ttl <= 0 keeps the key until deleted.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	var payload any
	switch v := value.(type) {
	case string, []byte:
		payload = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("rediscache: encode %s: %w", key, err)
		}
		payload = encoded
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("rediscache: set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("rediscache: delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key under the cache prefix. Keys outside the prefix
// are left alone.
func (c *Cache) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("rediscache: scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("rediscache: delete batch: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Debug("rediscache.cleared", "prefix", c.prefix, "deleted", deleted)
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
