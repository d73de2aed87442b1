package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mewayz/workspacebilling/internal/config"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultSubscriptionTTL = 30 * time.Second
	keySubscription        = "workspacebilling:subscription:%s"
)

// SubscriptionCache holds live-bundle snapshots. Failures degrade to cache misses.
type SubscriptionCache interface {
	Get(ctx context.Context, workspaceID string) (subscriptiondomain.Snapshot, bool)
	Set(ctx context.Context, snapshot subscriptiondomain.Snapshot)
	Invalidate(ctx context.Context, workspaceID string)
}

type SubscriptionCacheParams struct {
	fx.In

	Client *redis.Client `optional:"true"`
	Config config.Config
	Log    *zap.Logger
}

func NewSubscriptionCache(p SubscriptionCacheParams) SubscriptionCache {
	if p.Client == nil {
		return NoopSubscriptionCache{}
	}
	return NewRedisSubscriptionCache(p.Client, p.Config.SubscriptionCacheTTL, p.Log)
}

type redisSubscriptionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisSubscriptionCache(client *redis.Client, ttl time.Duration, log *zap.Logger) SubscriptionCache {
	if ttl <= 0 {
		ttl = defaultSubscriptionTTL
	}
	return &redisSubscriptionCache{client: client, ttl: ttl, log: log.Named("cache.subscription")}
}

func (c *redisSubscriptionCache) Get(ctx context.Context, workspaceID string) (subscriptiondomain.Snapshot, bool) {
	raw, err := c.client.Get(ctx, subscriptionKey(workspaceID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("subscription cache read failed", zap.String("workspace_id", workspaceID), zap.Error(err))
		}
		return subscriptiondomain.Snapshot{}, false
	}

	var snapshot subscriptiondomain.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		c.log.Warn("subscription cache entry corrupt", zap.String("workspace_id", workspaceID), zap.Error(err))
		return subscriptiondomain.Snapshot{}, false
	}
	return snapshot, true
}

func (c *redisSubscriptionCache) Set(ctx context.Context, snapshot subscriptiondomain.Snapshot) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, subscriptionKey(snapshot.WorkspaceID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("subscription cache write failed", zap.String("workspace_id", snapshot.WorkspaceID), zap.Error(err))
	}
}

func (c *redisSubscriptionCache) Invalidate(ctx context.Context, workspaceID string) {
	if err := c.client.Del(ctx, subscriptionKey(workspaceID)).Err(); err != nil {
		c.log.Warn("subscription cache invalidation failed", zap.String("workspace_id", workspaceID), zap.Error(err))
	}
}

type NoopSubscriptionCache struct{}

func (NoopSubscriptionCache) Get(context.Context, string) (subscriptiondomain.Snapshot, bool) {
	return subscriptiondomain.Snapshot{}, false
}

func (NoopSubscriptionCache) Set(context.Context, subscriptiondomain.Snapshot) {}

func (NoopSubscriptionCache) Invalidate(context.Context, string) {}

func subscriptionKey(workspaceID string) string {
	return fmt.Sprintf(keySubscription, strings.TrimSpace(workspaceID))
}
