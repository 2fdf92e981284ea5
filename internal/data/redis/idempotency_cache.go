// Package redis holds the Redis-backed fast paths: the idempotency result cache.
// Redis is never the source of truth; every miss or error falls through to Postgres.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/noblepay-ledger/internal/domain/idempotency"
)

const idempotencyKeyPrefix = "idem:"

// IdempotencyCache implements idempotency.Cache on Redis with a fixed TTL
type IdempotencyCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewIdempotencyCache creates a cache whose entries expire after ttl
func NewIdempotencyCache(logger *slog.Logger, client goredis.Cmdable, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(ownerID uuid.UUID, key string) string {
	return idempotencyKeyPrefix + ownerID.String() + ":" + key
}

// Get returns the cached record, or nil on a miss
func (c *IdempotencyCache) Get(ctx context.Context, ownerID uuid.UUID, key string) (*idempotency.Record, error) {
	raw, err := c.client.Get(ctx, cacheKey(ownerID, key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		c.logger.Warn("Failed to read idempotency cache", "key", key, "error", err)
		return nil, fmt.Errorf("failed to read idempotency cache: %w", err)
	}

	var rec idempotency.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn("Discarding corrupt idempotency cache entry", "key", key, "error", err)
		return nil, nil
	}

	return &rec, nil
}

// Set caches a committed record
func (c *IdempotencyCache) Set(ctx context.Context, rec *idempotency.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(rec.OwnerID, rec.Key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to write idempotency cache", "key", rec.Key, "error", err)
		return fmt.Errorf("failed to write idempotency cache: %w", err)
	}

	return nil
}
