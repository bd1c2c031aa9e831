// Package cache provides the response-cache tier in front of the object
// store. Both tiers (list snapshots and per-object meta payloads) are
// accelerators only; the store remains the source of truth and cache
// failures are never allowed to fail a write path.
package cache

import (
	"context"
	"time"
)

// ResponseCache is a request-keyed payload cache with per-entry TTLs.
type ResponseCache interface {
	// Match returns the cached payload for key, or ok=false on a miss.
	Match(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ListKey is the cache key for a storage-prefix list snapshot.
func ListKey(prefix string) string {
	return "list:" + prefix
}

// MetaKey is the cache key for a per-object meta/detail payload.
func MetaKey(objectKey string) string {
	return "meta:" + objectKey
}
