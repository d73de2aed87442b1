package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mewayz/workspacebilling/internal/config"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocker(t *testing.T, ttl time.Duration) (*WorkspaceLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewWorkspaceLocker(Params{
		Client: client,
		Config: config.Config{WorkspaceLockTTL: ttl},
		Log:    zap.NewNop(),
	}), mr
}

func TestTryLockAndRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "someone-else"))
	assert.True(t, mr.Exists("k"))

	require.NoError(t, locker.Release(ctx, "k", token))
	assert.False(t, mr.Exists("k"))
}

func TestNilLockerIsNotConfigured(t *testing.T) {
	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
}

func TestWorkspaceLockSerializes(t *testing.T) {
	w, _ := newTestLocker(t, 2*time.Second)
	ctx := context.Background()

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := w.Lock(ctx, "ws-1")
			if !assert.NoError(t, err) {
				return
			}
			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(10 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()
	assert.False(t, overlap.Load())
}

func TestWorkspaceLockTimesOut(t *testing.T) {
	w, _ := newTestLocker(t, 100*time.Millisecond)
	ctx := context.Background()

	_, err := w.Lock(ctx, "ws-1")
	require.NoError(t, err)

	_, err = w.Lock(ctx, "ws-1")
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestWorkspaceLockWithoutRedis(t *testing.T) {
	w := NewWorkspaceLocker(Params{Log: zap.NewNop()})
	unlock, err := w.Lock(context.Background(), "ws-1")
	require.NoError(t, err)
	unlock()
}
