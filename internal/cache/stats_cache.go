package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clarazen/backend/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// statsTTL is how long cached affiliate stats stay fresh
const statsTTL = 60 * time.Second

// StatsCache caches affiliate dashboard stats in Redis. A nil *StatsCache is
// valid and disables caching, so callers never need to branch on config.
type StatsCache struct {
	client *redis.Client
}

// NewStatsCache creates a stats cache from config. Returns nil when no redis
// address is configured.
func NewStatsCache(cfg config.RedisConfig) *StatsCache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &StatsCache{client: client}
}

func statsKey(userID uuid.UUID) string {
	return fmt.Sprintf("affiliate:stats:%s", userID)
}

// Get loads cached stats into dest. Returns false on miss or when caching is
// disabled.
func (c *StatsCache) Get(ctx context.Context, userID uuid.UUID, dest interface{}) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, statsKey(userID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// Set stores stats for the TTL window. Errors are ignored; the cache is
// best-effort.
func (c *StatsCache) Set(ctx context.Context, userID uuid.UUID, value interface{}) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.client.Set(ctx, statsKey(userID), data, statsTTL)
}

// Invalidate drops the cached stats for a user
func (c *StatsCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if c == nil {
		return
	}
	c.client.Del(ctx, statsKey(userID))
}
