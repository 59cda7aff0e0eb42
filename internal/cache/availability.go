package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const availabilityTTL = 60 * time.Second

// Checker is the upstream availability check being decorated
type Checker interface {
	CheckAvailable(ctx context.Context, label string) (bool, error)
}

// AvailabilityCache caches availability lookups in Redis for a short TTL.
// The dashboard polls availability on every keystroke; without the cache
// each keystroke would hit the provider gateway.
type AvailabilityCache struct {
	upstream Checker
	client   *redis.Client
	logger   *logrus.Entry
}

// NewAvailabilityCache wraps an availability checker with Redis caching
func NewAvailabilityCache(upstream Checker, client *redis.Client, logger *logrus.Entry) *AvailabilityCache {
	return &AvailabilityCache{
		upstream: upstream,
		client:   client,
		logger:   logger.WithField("component", "availability-cache"),
	}
}

// CheckAvailable returns the cached answer when fresh, otherwise asks the
// upstream and caches the result. Redis being down degrades to uncached
// lookups, never to an error.
func (c *AvailabilityCache) CheckAvailable(ctx context.Context, label string) (bool, error) {
	key := fmt.Sprintf("availability:%s", label)

	if val, err := c.client.Get(ctx, key).Result(); err == nil {
		return val == "1", nil
	} else if err != redis.Nil {
		c.logger.Warnf("cache read failed, falling through: %v", err)
	}

	available, err := c.upstream.CheckAvailable(ctx, label)
	if err != nil {
		return false, err
	}

	val := "0"
	if available {
		val = "1"
	}
	if err := c.client.Set(ctx, key, val, availabilityTTL).Err(); err != nil {
		c.logger.Warnf("cache write failed: %v", err)
	}
	return available, nil
}

// Invalidate drops the cached answer for a label, e.g. right after a
// registration claims it.
func (c *AvailabilityCache) Invalidate(ctx context.Context, label string) {
	if err := c.client.Del(ctx, fmt.Sprintf("availability:%s", label)).Err(); err != nil {
		c.logger.Warnf("cache invalidation failed for %s: %v", label, err)
	}
}
