// Package cache stores rendered artifacts so repeated exports of an
// unchanged document skip rendering.
//
// # Backends
//
//   - [FileCache]: lz4-compressed entries on local disk, used by the CLI
//   - [RedisCache]: shared entries for several server instances
//   - [NullCache]: caching disabled
//
// # Keys
//
// A [Keyer] derives keys from the document hash and the options that affect
// the output, so any change to either produces a different key:
//
//	k := cache.NewDefaultKeyer()
//	key := k.ArtifactKey(docHash, cache.ArtifactKeyOpts{Format: "svg", Style: "classic"})
//
// Wrap a backend with [Instrument] to report hits, misses and writes to the
// observability hooks.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/mindmap/pkg/observability"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the stored value and whether it was found. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// instrumented reports cache traffic to the observability hooks.
type instrumented struct {
	Cache
	keyType string
}

// Instrument wraps c so every lookup and write is reported to the cache
// hooks under keyType.
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, hit, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
