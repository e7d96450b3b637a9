// Package cache holds rendered export documents in a two-tier cache: a
// bounded in-process LRU in front of an optional shared Redis store.
package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stwalsh4118/orchard/internal/logger"
)

// Remote is the shared tier. *Redis satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// ExportCache is safe for concurrent use.
type ExportCache struct {
	local  *lru.Cache[string, []byte]
	remote Remote
	ttl    time.Duration
	log    *logger.Logger
}

// NewExportCache builds a cache holding up to entries documents locally.
// remote may be nil. Remote failures are logged and treated as misses.
func NewExportCache(entries int, remote Remote, ttl time.Duration, log *logger.Logger) (*ExportCache, error) {
	local, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create export LRU: %w", err)
	}
	return &ExportCache{local: local, remote: remote, ttl: ttl, log: log}, nil
}

// Get looks key up locally, then remotely. Remote hits are promoted to the
// local tier.
func (c *ExportCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := c.local.Get(key); ok {
		return val, true
	}
	if c.remote == nil {
		return nil, false
	}

	val, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.log.Warn("Export cache lookup failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, false
	}
	if ok {
		c.local.Add(key, val)
	}
	return val, ok
}

// Put stores val in both tiers.
func (c *ExportCache) Put(ctx context.Context, key string, val []byte) {
	c.local.Add(key, val)
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, val, c.ttl); err != nil {
		c.log.Warn("Export cache store failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// Len reports the number of locally held documents.
func (c *ExportCache) Len() int {
	return c.local.Len()
}
