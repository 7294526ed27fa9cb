package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emberdating/ember-backend/internal/config"
)

// ConnectionTTL bounds how long a cached handle survives without a reconnect.
// The durable registry row is authoritative; the cache is the hot path.
const ConnectionTTL = 24 * time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

func (c *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	return c.Client.Decr(ctx, key).Result()
}

// KeyForLikeCount generates Redis key for a user's like count
func (c *RedisCache) KeyForLikeCount(userID uint64) string {
	return fmt.Sprintf("likes:count:%d", userID)
}

func (c *RedisCache) UpdateLikeCount(ctx context.Context, userID uint64, count int64) error {
	key := c.KeyForLikeCount(userID)
	// Always refresh TTL when updating
	return c.Client.Set(ctx, key, count, time.Hour).Err()
}

// GetLikeCount reads the cached like count. The second return reports a
// cache hit, so a genuinely cached zero is distinguishable from a miss.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// KeyForConnection generates Redis key for a user's last known session handle.
func (c *RedisCache) KeyForConnection(userID uint64) string {
	return fmt.Sprintf("conn:handle:%d", userID)
}

// SetConnection mirrors the registry row for fast resolve on delivery.
func (c *RedisCache) SetConnection(ctx context.Context, userID uint64, handle string) error {
	return c.Client.Set(ctx, c.KeyForConnection(userID), handle, ConnectionTTL).Err()
}

// GetConnection returns the cached handle, or "" on cache miss.
func (c *RedisCache) GetConnection(ctx context.Context, userID uint64) (string, error) {
	val, err := c.Client.Get(ctx, c.KeyForConnection(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// DelConnection drops the cached handle, e.g. after a stale-handle prune.
func (c *RedisCache) DelConnection(ctx context.Context, userID uint64) error {
	return c.Client.Del(ctx, c.KeyForConnection(userID)).Err()
}
