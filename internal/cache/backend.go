// Package cache provides byte-level cache backends and the typed reply media store built on them.
package cache

import (
	"context"
	"time"
)

// CacheBackend stores opaque values under string keys with a per-entry TTL.
// A miss is (nil, false, nil); errors are reserved for backend failures.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// GetMultiple returns the live entries among keys; missing keys are absent from the map
	GetMultiple(ctx context.Context, keys []string) (map[string][]byte, error)

	// Ping reports whether the backend can serve requests
	Ping(ctx context.Context) error
	Close() error
}
