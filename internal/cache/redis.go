package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces this application's keys in a shared Redis.
const keyPrefix = "muse:"

// Redis is a Cache backed by a Redis server, for deployments running more
// than one process. TTL expiry is handled by Redis itself.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed cache from a redis:// URL and verifies
// the connection.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get implements Cache. Redis handles expiry, so a stale entry is simply
// absent; errors are treated as misses so a Redis outage degrades to
// uncached operation rather than failing requests.
func (r *Redis) Get(ctx context.Context, userID, category string) ([]byte, bool) {
	value, err := r.client.Get(ctx, keyPrefix+Key(userID, category)).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, userID, category string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := r.client.Set(ctx, keyPrefix+Key(userID, category), value, ttl).Err(); err != nil {
		return fmt.Errorf("caching %s for user %s: %w", category, userID, err)
	}
	return nil
}

// Invalidate implements Cache.
func (r *Redis) Invalidate(ctx context.Context, userID, category string) error {
	if err := r.client.Del(ctx, keyPrefix+Key(userID, category)).Err(); err != nil {
		return fmt.Errorf("invalidating %s for user %s: %w", category, userID, err)
	}
	return nil
}

// InvalidateUser implements Cache using SCAN so a large keyspace is never
// blocked by a KEYS call.
func (r *Redis) InvalidateUser(ctx context.Context, userID string) error {
	pattern := keyPrefix + userID + ":*"
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys for user %s: %w", userID, err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clearing cache for user %s: %w", userID, err)
	}
	return nil
}
