package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sp3dr4/wren/internal/domain"
)

// RedirectCache is a redis-backed domain.RedirectCache for deployments that
// want cached resolutions to survive process restarts. It approximates the
// in-process cache's sliding window by re-arming the key TTL on every hit;
// capacity bounding is left to redis's own maxmemory eviction. It makes no
// coherence promises across processes.
type RedirectCache struct {
	client      *redis.Client
	logger      *slog.Logger
	positiveTTL time.Duration
	negativeTTL time.Duration
}

func NewRedirectCache(client *redis.Client, logger *slog.Logger, positiveTTL, negativeTTL time.Duration) *RedirectCache {
	return &RedirectCache{
		client:      client,
		logger:      logger,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
	}
}

func (c *RedirectCache) ttlFor(res domain.Resolution) time.Duration {
	if res.NotFound {
		return c.negativeTTL
	}
	return c.positiveTTL
}

func (c *RedirectCache) Get(ctx context.Context, shortID string) (*domain.Resolution, error) {
	key := c.buildKey(shortID)

	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		c.logger.Error("Failed to get from cache", "key", key, "error", err)
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var res domain.Resolution
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		c.logger.Error("Failed to unmarshal cached value", "key", key, "error", err)
		return nil, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	// slide the expiry forward; failure here only shortens residency
	if err := c.client.Expire(ctx, key, c.ttlFor(res)).Err(); err != nil {
		c.logger.Warn("Failed to refresh cache TTL", "key", key, "error", err)
	}

	return &res, nil
}

func (c *RedirectCache) Set(ctx context.Context, shortID string, res domain.Resolution) error {
	key := c.buildKey(shortID)

	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal resolution: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttlFor(res)).Err(); err != nil {
		c.logger.Error("Failed to set cache", "key", key, "error", err)
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (c *RedirectCache) Delete(ctx context.Context, shortID string) error {
	key := c.buildKey(shortID)

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Failed to delete from cache", "key", key, "error", err)
		return fmt.Errorf("cache delete failed: %w", err)
	}
	return nil
}

func (c *RedirectCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedirectCache) buildKey(shortID string) string {
	return fmt.Sprintf("redirect:%s", shortID)
}
