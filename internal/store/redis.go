package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisBackendName = "redis"
	redisScanCount   = 100
	redisOpTimeout   = 2 * time.Second
)

// RedisBackend implements Backend on a Redis server.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// NewRedisBackendFromURL parses a redis:// URL and builds a backend with
// short dial and I/O timeouts so an unreachable server degrades quickly.
func NewRedisBackendFromURL(rawURL string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = redisOpTimeout
	opts.ReadTimeout = redisOpTimeout
	opts.WriteTimeout = redisOpTimeout
	opts.MaxRetries = 1
	return NewRedisBackend(redis.NewClient(opts)), nil
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, backendErr(redisBackendName, "get", key, err)
	}
	return val, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return backendErr(redisBackendName, "set", key, r.client.Set(ctx, key, value, ttl).Err())
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return backendErr(redisBackendName, "del", key, r.client.Del(ctx, key).Err())
}

// Keys implements Backend using SCAN so large keyspaces are not blocked.
func (r *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, backendErr(redisBackendName, "scan", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping implements Backend.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return backendErr(redisBackendName, "ping", "", r.client.Ping(ctx).Err())
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
