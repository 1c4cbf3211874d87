// Package cache stores computed layouts and exported artifacts keyed by a
// hash of their inputs.
//
// Layout is deterministic, so a layout computed once for a given graph,
// strategy and spacing can be reused by every later request with the same
// input. The CLI uses [FileCache]; the serve command can share a
// [RedisCache] between processes.
//
//	c, _ := cache.NewFileCache(dir)
//	key := cache.NewDefaultKeyer().LayoutKey(graphHash, cache.LayoutKeyOpts{Strategy: "grid-medium"})
//	if data, hit, _ := c.Get(ctx, key); hit {
//	    // decode data
//	}
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
// A miss is reported as hit == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs.
const (
	LayoutTTL   = 7 * 24 * time.Hour
	ArtifactTTL = 24 * time.Hour
)
