package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/tessera-io/tessera/internal/permissions"
)

const grantsVersionKey = "authz:grants:version"

// GrantCache caches per-role permission sets in Redis. Keys carry a global
// version counter; any change to the role/policy graph bumps the counter and
// orphans every cached entry at once. The cache is best-effort: Redis
// failures fall through to the underlying store, so resolution correctness
// never depends on cache availability.
type GrantCache struct {
	logger *slog.Logger
	client *redis.Client
	source RoleGrants
	ttl    time.Duration
	group  singleflight.Group
}

// NewGrantCache wraps source with a Redis cache. client may be nil, which
// disables caching entirely.
func NewGrantCache(logger *slog.Logger, client *redis.Client, source RoleGrants, ttl time.Duration) *GrantCache {
	return &GrantCache{logger: logger, client: client, source: source, ttl: ttl}
}

// EffectivePermissions returns the role's transitive permission set, cached.
// Concurrent rebuilds of the same role collapse into a single store query.
func (c *GrantCache) EffectivePermissions(ctx context.Context, roleID uuid.UUID) ([]permissions.Key, error) {
	if c == nil || c.client == nil {
		return c.source.EffectivePermissions(ctx, roleID)
	}

	key, err := c.grantsKey(ctx, roleID)
	if err != nil {
		c.logger.Warn("grant cache unavailable", slog.Any("error", err))
		return c.source.EffectivePermissions(ctx, roleID)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var keys []permissions.Key
		if err := json.Unmarshal(payload, &keys); err == nil {
			return keys, nil
		}
		c.logger.Warn("grant cache entry corrupt", slog.String("key", key))
	} else if err != redis.Nil {
		c.logger.Warn("grant cache read failed", slog.Any("error", err))
		return c.source.EffectivePermissions(ctx, roleID)
	}

	result := c.group.DoChan(key, func() (interface{}, error) {
		keys, err := c.source.EffectivePermissions(ctx, roleID)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(keys)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("grant cache write failed", slog.Any("error", err))
		}
		return keys, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]permissions.Key), nil
	}
}

// GraphChanged invalidates every cached permission set by bumping the
// global version counter. Called after any permission, policy, or role
// graph mutation. Memberships are never cached, so membership changes
// take effect without invalidation.
func (c *GrantCache) GraphChanged(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, grantsVersionKey).Err(); err != nil {
		c.logger.Error("grant cache invalidation failed", slog.Any("error", err))
	}
}

func (c *GrantCache) grantsKey(ctx context.Context, roleID uuid.UUID) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("authz:grants:%s:%d", roleID, ver), nil
}

func (c *GrantCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, grantsVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, grantsVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}
