package cache

import "time"

// CacheConfig holds cache TTL configuration
type CacheConfig struct {
	ReplyMediaTTL     time.Duration
	ReplyMediaFailTTL time.Duration
	MaxEntries        int
	CleanupInterval   time.Duration
}

// DefaultCacheConfig returns the reply media freshness window and memory limits
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ReplyMediaTTL:     5 * time.Minute,
		ReplyMediaFailTTL: 30 * time.Second,
		MaxEntries:        10000,
		CleanupInterval:   2 * time.Minute,
	}
}
