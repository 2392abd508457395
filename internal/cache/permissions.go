// Package cache keeps hot-path permission checks off Postgres. Access
// checks run on every sub-account-scoped request, while toggles are
// rare admin actions, so a short-TTL cache-aside with explicit
// invalidation on toggle is enough; a stale entry can live at most
// defaultTTL.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultTTL = 30 * time.Second

// PermissionCache answers "does email have access to this
// sub-account?" from Redis, falling back to the loader (the permission
// store) on a miss. Cache failures degrade to the loader — Redis being
// down must not take access checks down with it.
type PermissionCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewPermissionCache(client *redis.Client, logger *zap.Logger) *PermissionCache {
	return &PermissionCache{client: client, logger: logger}
}

func key(email string, subAccountID uuid.UUID) string {
	return fmt.Sprintf("perm:%s:%s", email, subAccountID)
}

// HasAccess returns the cached flag or loads it from the source of
// truth, caches it, and returns it.
func (c *PermissionCache) HasAccess(ctx context.Context, email string, subAccountID uuid.UUID, load func(ctx context.Context) (bool, error)) (bool, error) {
	k := key(email, subAccountID)

	val, err := c.client.Get(ctx, k).Result()
	switch {
	case err == nil:
		return val == "1", nil
	case err != redis.Nil:
		c.logger.Warn("permission cache read failed", zap.Error(err))
	}

	access, err := load(ctx)
	if err != nil {
		return false, err
	}

	stored := "0"
	if access {
		stored = "1"
	}
	if err := c.client.Set(ctx, k, stored, defaultTTL).Err(); err != nil {
		c.logger.Warn("permission cache write failed", zap.Error(err))
	}
	return access, nil
}

// Invalidate drops the cached flag for the pair. Called by the
// permission toggle after the upsert commits.
func (c *PermissionCache) Invalidate(ctx context.Context, email string, subAccountID uuid.UUID) {
	if err := c.client.Del(ctx, key(email, subAccountID)).Err(); err != nil {
		c.logger.Warn("permission cache invalidate failed", zap.Error(err))
	}
}
