package cache

import (
	"context"
	"log/slog"
	"sync"
)

// Coherency evicts cache entries after store commits. Evictions run
// concurrently and are best-effort: a failed delete only widens the
// staleness window of later reads, it never fails the surrounding write.
type Coherency struct {
	cache ResponseCache
}

// NewCoherency wraps a response cache with the eviction fan-out.
func NewCoherency(cache ResponseCache) *Coherency {
	return &Coherency{cache: cache}
}

// InvalidateCommit evicts everything a committed CRL makes stale: the
// list snapshots for all three artifact prefixes and the meta entries
// for each written object key.
func (c *Coherency) InvalidateCommit(ctx context.Context, listPrefixes []string, objectKeys []string) {
	keys := make([]string, 0, len(listPrefixes)+len(objectKeys))
	for _, prefix := range listPrefixes {
		keys = append(keys, ListKey(prefix))
	}
	for _, objectKey := range objectKeys {
		keys = append(keys, MetaKey(objectKey))
	}
	c.evict(ctx, keys)
}

// InvalidateObject evicts the meta entry for a single object key.
func (c *Coherency) InvalidateObject(ctx context.Context, objectKey string) {
	c.evict(ctx, []string{MetaKey(objectKey)})
}

func (c *Coherency) evict(ctx context.Context, keys []string) {
	var wg sync.WaitGroup
	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if err := c.cache.Delete(ctx, key); err != nil {
				slog.Warn("cache eviction failed", "key", key, "err", err)
			}
		}(key)
	}
	wg.Wait()
}
