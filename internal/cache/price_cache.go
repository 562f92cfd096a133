// Package cache holds the Redis-backed price series cache that sits between
// the HTTP API and the upstream quote provider.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/quantfeed/dcalab-go/internal/models"
)

// PriceCacheEntry is a cached series with its freshness metadata.
type PriceCacheEntry struct {
	Points    []models.PricePoint `json:"points"`
	CachedAt  time.Time           `json:"cached_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// PriceCacheStats tracks cache performance.
type PriceCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.Mutex
}

// RedisPriceCache caches fetched price series in Redis as JSON, keyed by
// symbol and date range.
type RedisPriceCache struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *PriceCacheStats
	prefix string
	logger *logrus.Logger
}

// NewRedisPriceCache creates a price cache with the given entry TTL.
func NewRedisPriceCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisPriceCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisPriceCache{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &PriceCacheStats{},
		prefix: "price_cache:",
		logger: logger,
	}
}

// Key builds the cache key for a symbol and date range.
func (c *RedisPriceCache) Key(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s:%s:%s", symbol, from.Format(models.DateLayout), to.Format(models.DateLayout))
}

// Get retrieves a cached series. The second return reports a hit.
func (c *RedisPriceCache) Get(ctx context.Context, key string) ([]models.PricePoint, bool) {
	data, err := c.redis.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		c.miss()
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis get failed")
		c.miss()
		return nil, false
	}

	var entry PriceCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Corrupt cache entry")
		c.miss()
		return nil, false
	}

	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	return entry.Points, true
}

// Set stores a series under key for the cache TTL.
func (c *RedisPriceCache) Set(ctx context.Context, key string, points []models.PricePoint) {
	now := time.Now()
	entry := PriceCacheEntry{
		Points:    points,
		CachedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to serialize cache entry")
		return
	}
	if err := c.redis.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Redis set failed")
		return
	}
	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}

// Stats returns a copy of the current hit/miss counters.
func (c *RedisPriceCache) Stats() PriceCacheStats {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	return PriceCacheStats{Hits: c.stats.Hits, Misses: c.stats.Misses, Sets: c.stats.Sets}
}

func (c *RedisPriceCache) miss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}
