// Package cache is a Redis-backed cache of completed schedule runs,
// keyed by a hash of the request that produced them.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/knaveofdiamonds/tablefit/internal/schedule"
)

const keyPrefix = "schedule:"

// ScheduleCache wraps a redis client with tablefit's key scheme.
type ScheduleCache struct {
	client *redis.Client
	logger *logrus.Entry
}

// New constructs a ScheduleCache.
func New(client *redis.Client, logger *logrus.Entry) *ScheduleCache {
	return &ScheduleCache{client: client, logger: logger}
}

// Set stores a solved schedule under key for ttl.
func (c *ScheduleCache) Set(ctx context.Context, key string, result *schedule.Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("cache: marshal schedule result: %w", err)
	}

	fullKey := keyPrefix + key
	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set schedule result: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"sessions":  len(result.Sessions),
	}).Debug("cached schedule result")
	return nil
}

// Get retrieves a cached schedule by key, or (nil, nil) on a cache miss.
func (c *ScheduleCache) Get(ctx context.Context, key string) (*schedule.Result, error) {
	fullKey := keyPrefix + key
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: get schedule result: %w", err)
	}

	var result schedule.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("cache: unmarshal schedule result: %w", err)
	}
	return &result, nil
}

// Status reports diagnostic counters for the /api/v1/schedule/cache-status
// endpoint.
func (c *ScheduleCache) Status(ctx context.Context) map[string]interface{} {
	status := map[string]interface{}{
		"service":   "schedule-cache",
		"timestamp": time.Now(),
	}

	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		status["db_size"] = dbSize
	}
	if keys, err := c.client.Keys(ctx, keyPrefix+"*").Result(); err == nil {
		status["cached_schedules"] = len(keys)
	}

	return status
}

// Flush clears every cached schedule result.
func (c *ScheduleCache) Flush(ctx context.Context) error {
	keys, err := c.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("cache: listing keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: deleting keys: %w", err)
	}
	c.logger.WithField("deleted_keys", len(keys)).Info("flushed schedule cache")
	return nil
}
