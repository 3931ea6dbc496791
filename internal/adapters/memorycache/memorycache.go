// Package memorycache keeps rendered artefacts in process memory.
package memorycache

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-renderly/pkg/interfaces"
)

type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is an in-process interfaces.CacheProvider with per-entry TTL.
// Expired entries are dropped lazily on read.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

var _ interfaces.CacheProvider = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the expiry clock.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Cache) Get(_ context.Context, key string) (any, error) {
	c.mu.RLock()
	item, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if item.expired(c.now()) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, nil
	}
	return item.value, nil
}

// Set stores value under key. A ttl <= 0 keeps the entry until deleted.
func (c *Cache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	item := entry{value: value}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[key] = item
	c.mu.Unlock()
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

func (c *Cache) Clear(context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
