package main

import (
	"context"
	"log/slog"

	"reply-overlay/internal/cache"
)

const redisKeyPrefix = "replyoverlay:"

// InitCaches returns a Redis backend when redisURL is set and reachable, otherwise memory.
// The second result names the backend for health and metrics.
func InitCaches(ctx context.Context, redisURL string, cfg cache.CacheConfig) (cache.CacheBackend, string) {
	if redisURL != "" {
		slog.Info("initializing Redis cache")
		redisCache, err := cache.NewRedisCache(ctx, redisURL, redisKeyPrefix)
		if err == nil {
			slog.Info("Redis cache initialized")
			return redisCache, "redis"
		}
		slog.Warn("Redis connection failed, using memory cache", "error", err)
	}

	slog.Info("initializing in-memory cache")
	return cache.NewMemoryCache(cfg.MaxEntries, cfg.CleanupInterval), "memory"
}
