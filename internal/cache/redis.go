package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drivekit/billing/internal/config"
	"github.com/drivekit/billing/internal/logger"
)

// RedisCache implements the Cache interface on a shared Redis instance.
// Values are stored as JSON; Get returns the raw payload as []byte and
// callers unmarshal through UnmarshalValue.
type RedisCache struct {
	client *redis.Client
	cfg    *config.Configuration
	log    *logger.Logger
}

// NewRedisCache creates a RedisCache from the configured address
func NewRedisCache(cfg *config.Configuration, log *logger.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &RedisCache{client: client, cfg: cfg, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	if !c.cfg.Cache.Enabled {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warnw("redis get failed", "key", key, "error", err)
		}
		return nil, false
	}
	return payload, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	if !c.cfg.Cache.Enabled {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		c.log.Warnw("redis set skipped, value not serializable", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		c.log.Warnw("redis set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Warnw("redis delete failed", "key", key, "error", err)
	}
}

func (c *RedisCache) DeleteByPrefix(ctx context.Context, prefix string) {
	if !c.cfg.Cache.Enabled {
		return
	}
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.Warnw("redis delete failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		c.log.Warnw("redis scan failed", "prefix", prefix, "error", err)
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	if !c.cfg.Cache.Enabled {
		return
	}
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		c.log.Warnw("redis flush failed", "error", err)
	}
}
