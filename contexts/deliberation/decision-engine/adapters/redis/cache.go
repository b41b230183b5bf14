package redisadapter

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTallyTTL = 30 * time.Second

// TallyCache stores serialized tally snapshots keyed by decision. Entries are
// short-lived; writers invalidate on every ledger upsert so a hit is at most
// one TTL stale after a missed invalidation.
type TallyCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewTallyCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *TallyCache {
	if ttl <= 0 {
		ttl = defaultTallyTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TallyCache{client: client, ttl: ttl, logger: logger}
}

func tallyKey(decisionID string) string {
	return "deliberation:tally:" + decisionID
}

func (c *TallyCache) GetTally(ctx context.Context, decisionID string) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, tallyKey(decisionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, c.logError("tally_cache_get_failed", err, decisionID)
	}
	return payload, true, nil
}

func (c *TallyCache) PutTally(ctx context.Context, decisionID string, payload []byte) error {
	if err := c.client.Set(ctx, tallyKey(decisionID), payload, c.ttl).Err(); err != nil {
		return c.logError("tally_cache_put_failed", err, decisionID)
	}
	return nil
}

func (c *TallyCache) InvalidateTally(ctx context.Context, decisionID string) error {
	if err := c.client.Del(ctx, tallyKey(decisionID)).Err(); err != nil {
		return c.logError("tally_cache_invalidate_failed", err, decisionID)
	}
	return nil
}

func (c *TallyCache) logError(event string, err error, decisionID string) error {
	c.logger.Error("tally cache operation failed",
		"event", event,
		"module", "deliberation/decision-engine",
		"layer", "adapter",
		"decision_id", decisionID,
		"error", err.Error(),
	)
	return err
}
