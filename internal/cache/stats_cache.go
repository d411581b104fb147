package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
)

const statsGenerationKey = "tickets:stats:generation"

// StatsCache keeps ticket statistics in Redis under a generation-stamped
// key. Invalidate bumps the generation so every cached variant (per
// assignee filter) goes stale at once without key scans. Nil-safe: a cache
// built without a client degrades to always-miss.
type StatsCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewStatsCache builds the cache. client may be nil when Redis is not
// configured.
func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsCache{client: client, logger: logger, ttl: ttl}
}

// Get returns cached statistics for the assignee filter, or (nil, false).
func (c *StatsCache) Get(ctx context.Context, assignedUserID string) (*domain.TicketStatistics, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	key, err := c.statsKey(ctx, assignedUserID)
	if err != nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var stats domain.TicketStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("discarding malformed cached statistics", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &stats, true
}

// Set stores statistics for the assignee filter under the current
// generation.
func (c *StatsCache) Set(ctx context.Context, assignedUserID string, stats *domain.TicketStatistics) {
	if c == nil || c.client == nil || stats == nil {
		return
	}
	key, err := c.statsKey(ctx, assignedUserID)
	if err != nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache statistics", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate bumps the generation counter after a committed mutation.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, statsGenerationKey).Err(); err != nil {
		c.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
	}
}

func (c *StatsCache) statsKey(ctx context.Context, assignedUserID string) (string, error) {
	generation, err := c.client.Get(ctx, statsGenerationKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	filter := assignedUserID
	if filter == "" {
		filter = "all"
	}
	return fmt.Sprintf("tickets:stats:%d:%s", generation, filter), nil
}
