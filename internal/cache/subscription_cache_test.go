package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T, ttl time.Duration) (SubscriptionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisSubscriptionCache(client, ttl, zap.NewNop()), mr
}

func TestRedisSubscriptionCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	_, ok := c.Get(ctx, "ws-1")
	assert.False(t, ok)

	c.Set(ctx, subscriptiondomain.Snapshot{
		WorkspaceID:    "ws-1",
		Live:           true,
		SubscriptionID: 99,
		Bundles:        []bundledomain.BundleID{bundledomain.BundleCreator},
		BillingCycle:   bundledomain.BillingCycleMonthly,
	})
	assert.True(t, mr.Exists("workspacebilling:subscription:ws-1"))

	got, ok := c.Get(ctx, "ws-1")
	require.True(t, ok)
	assert.True(t, got.Live)
	assert.Equal(t, []bundledomain.BundleID{bundledomain.BundleCreator}, got.Bundles)

	c.Invalidate(ctx, "ws-1")
	_, ok = c.Get(ctx, "ws-1")
	assert.False(t, ok)
}

func TestRedisSubscriptionCacheExpires(t *testing.T) {
	c, mr := newTestCache(t, 5*time.Second)
	ctx := context.Background()

	c.Set(ctx, subscriptiondomain.Snapshot{WorkspaceID: "ws-1"})
	mr.FastForward(6 * time.Second)

	_, ok := c.Get(ctx, "ws-1")
	assert.False(t, ok)
}

func TestRedisSubscriptionCacheDegradesWhenDown(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	ctx := context.Background()
	c.Set(ctx, subscriptiondomain.Snapshot{WorkspaceID: "ws-1", Live: true})
	_, ok := c.Get(ctx, "ws-1")
	assert.False(t, ok)
}

func TestNoopSubscriptionCache(t *testing.T) {
	c := NewSubscriptionCache(SubscriptionCacheParams{Log: zap.NewNop()})
	c.Set(context.Background(), subscriptiondomain.Snapshot{WorkspaceID: "ws-1", Live: true})
	_, ok := c.Get(context.Background(), "ws-1")
	assert.False(t, ok)
}
