package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const recheckDedupTTL = 15 * time.Second

// RecheckGuard collapses concurrent manual verification rechecks for the
// same domain into one provider probe, via a short-lived SETNX key.
type RecheckGuard struct {
	client *redis.Client
	logger *logrus.Entry
}

// NewRecheckGuard creates a redis-backed recheck dedup guard
func NewRecheckGuard(client *redis.Client, logger *logrus.Entry) *RecheckGuard {
	return &RecheckGuard{
		client: client,
		logger: logger.WithField("component", "recheck-guard"),
	}
}

// Acquire reports whether the caller won the right to probe. Redis being
// down degrades to no deduping, never to a blocked recheck.
func (g *RecheckGuard) Acquire(ctx context.Context, domainID int) bool {
	ok, err := g.client.SetNX(ctx, fmt.Sprintf("recheck:%d", domainID), "1", recheckDedupTTL).Result()
	if err != nil {
		g.logger.Warnf("dedup key write failed, allowing recheck: %v", err)
		return true
	}
	return ok
}
