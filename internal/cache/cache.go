// Package cache provides a small byte-oriented cache used to deduplicate
// data-feed fetches across cycles.
package cache

import (
	"context"
	"time"
)

// Store is a TTL key-value cache. Implementations must be safe for concurrent
// use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
