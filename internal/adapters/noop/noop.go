// Package noop holds the document cache used when caching is switched off.
package noop

import (
	"context"
	"time"

	"github.com/goliatone/go-renderly/pkg/interfaces"
)

// Discard accepts every write and misses every read, so the composer
// renders each document from scratch.
type Discard struct{}

var _ interfaces.CacheProvider = Discard{}

// Cache returns the discarding provider.
func Cache() interfaces.CacheProvider { return Discard{} }

func (Discard) Get(context.Context, string) (any, error)              { return nil, nil }
func (Discard) Set(context.Context, string, any, time.Duration) error { return nil }
func (Discard) Delete(context.Context, string) error                  { return nil }
func (Discard) Clear(context.Context) error                           { return nil }
