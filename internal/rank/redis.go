// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores ranked orders in redis so multiple engine instances
// share one cache. Entries are JSON values with a server-side TTL.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// NewRedisCacheFromURL connects using a redis URL
// (e.g. "redis://localhost:6379/0").
func NewRedisCacheFromURL(rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{rdb: redis.NewClient(opts)}, nil
}

// Get returns the cached entry for key. Any redis or decode error is a
// cache miss.
func (c *RedisCache) Get(ctx context.Context, key string) (*Entry, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	return &e, true
}

// Set stores the entry with the given TTL. Errors are dropped; a failed
// write only means the next request recomputes.
func (c *RedisCache) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key, data, ttl)
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
