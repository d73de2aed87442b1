package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mewayz/workspacebilling/internal/config"
	"github.com/mewayz/workspacebilling/internal/observability/metrics"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyWorkspaceMutation = "workspacebilling:lock:workspace:%s"
	defaultLockTTL       = 5 * time.Second
	pollInterval         = 25 * time.Millisecond
)

// WorkspaceLocker serializes subscription mutations for one workspace across replicas.
// A nil Redis client, or an unreachable one, makes Lock a no-op; storage versioning still
// rejects lost updates.
type WorkspaceLocker struct {
	locker  *Locker
	ttl     time.Duration
	wait    time.Duration
	log     *zap.Logger
	metrics *metrics.StorageMetrics
}

type Params struct {
	fx.In

	Client  *redis.Client `optional:"true"`
	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.StorageMetrics `optional:"true"`
}

func NewWorkspaceLocker(p Params) *WorkspaceLocker {
	ttl := p.Config.WorkspaceLockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &WorkspaceLocker{
		locker:  NewLocker(p.Client),
		ttl:     ttl,
		wait:    ttl,
		log:     p.Log.Named("lock.workspace"),
		metrics: p.Metrics,
	}
}

// Lock blocks until the workspace lock is held, ctx ends, or the wait budget runs out
// (ErrNotAcquired). The returned unlock func is always non-nil.
func (w *WorkspaceLocker) Lock(ctx context.Context, workspaceID string) (func(), error) {
	noop := func() {}
	if w == nil || w.locker == nil {
		return noop, nil
	}

	key := fmt.Sprintf(keyWorkspaceMutation, strings.TrimSpace(workspaceID))
	start := time.Now()
	deadline := start.Add(w.wait)

	for {
		token, ok, err := w.locker.TryLock(ctx, key, w.ttl)
		if err != nil {
			if ctx.Err() != nil {
				return noop, ctx.Err()
			}
			w.log.Warn("workspace lock unavailable, continuing unlocked",
				zap.String("workspace_id", workspaceID),
				zap.Error(err),
			)
			return noop, nil
		}
		if ok {
			if w.metrics != nil {
				w.metrics.ObserveLockWait("workspace", time.Since(start))
			}
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				if err := w.locker.Release(releaseCtx, key, token); err != nil {
					w.log.Warn("workspace lock release failed", zap.String("workspace_id", workspaceID), zap.Error(err))
				}
			}, nil
		}

		if time.Now().After(deadline) {
			return noop, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return noop, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
