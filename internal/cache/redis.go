package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxMGetKeys bounds a single MGET so one batch cannot stall the connection
const maxMGetKeys = 100

// RedisCache implements CacheBackend on a shared Redis, namespacing every key with prefix
type RedisCache struct {
	client *redis.Client
	prefix string
}

// redisOptions parses redis://[:password@]host:port/db (or rediss:// for TLS) and sizes the pool
// for the per-anchor fan-out of batched lookups.
func redisOptions(redisURL string) (*redis.Options, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.PoolSize = 20
	opts.MinIdleConns = 4
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	return opts, nil
}

// NewRedisCache connects and pings; the caller falls back to memory on error
func NewRedisCache(ctx context.Context, redisURL string, prefix string) (*RedisCache, error) {
	opts, err := redisOptions(redisURL)
	if err != nil {
		return nil, err
	}
	rc := NewRedisCacheFromClient(redis.NewClient(opts), prefix)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := rc.Ping(pingCtx); err != nil {
		rc.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return rc, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return data, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// GetMultiple issues one MGET per maxMGetKeys keys
func (r *RedisCache) GetMultiple(ctx context.Context, keys []string) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	for start := 0; start < len(keys); start += maxMGetKeys {
		chunk := keys[start:min(start+maxMGetKeys, len(keys))]

		namespaced := make([]string, len(chunk))
		for i, k := range chunk {
			namespaced[i] = r.prefix + k
		}
		values, err := r.client.MGet(ctx, namespaced...).Result()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if s, ok := v.(string); ok {
				result[chunk[i]] = []byte(s)
			}
		}
	}
	return result, nil
}

// Ping checks the server is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
