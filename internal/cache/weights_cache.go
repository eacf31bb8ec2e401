// Package cache provides a short-TTL Redis cache for the active
// RankingWeights row: read on every search, invalidated on admin writes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/types"
)

const activeWeightsKey = "discovery:ranking_weights:active"

type WeightsCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewWeightsCache(log *logger.Logger, addr string, ttl time.Duration) (*WeightsCache, error) {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &WeightsCache{log: log.With("component", "WeightsCache"), rdb: rdb, ttl: ttl}, nil
}

func (c *WeightsCache) Get(ctx context.Context) (*types.RankingWeights, bool) {
	raw, err := c.rdb.Get(ctx, activeWeightsKey).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("weights cache read failed", "error", err)
		}
		return nil, false
	}
	var w types.RankingWeights
	if err := json.Unmarshal(raw, &w); err != nil {
		c.log.Warn("weights cache decode failed", "error", err)
		return nil, false
	}
	return &w, true
}

func (c *WeightsCache) Set(ctx context.Context, w *types.RankingWeights) {
	raw, err := json.Marshal(w)
	if err != nil {
		c.log.Warn("weights cache encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, activeWeightsKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn("weights cache write failed", "error", err)
	}
}

// Invalidate drops the cached row immediately on an admin write, rather
// than waiting out the TTL.
func (c *WeightsCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, activeWeightsKey).Err(); err != nil {
		c.log.Warn("weights cache invalidate failed", "error", err)
	}
}

func (c *WeightsCache) Close() error {
	return c.rdb.Close()
}
