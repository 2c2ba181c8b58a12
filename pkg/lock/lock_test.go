package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/lock"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocal()

	release, err := l.Acquire(ctx, "agency")
	require.NoError(t, err)
	assert.True(t, l.Held("agency"))

	_, err = l.Acquire(ctx, "agency")
	require.Error(t, err)
	assert.True(t, errors.IsLocked(err))

	other, err := l.Acquire(ctx, "other")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "release is idempotent")
	assert.False(t, l.Held("agency"))

	_, err = l.Acquire(ctx, "agency")
	require.NoError(t, err)
}

func TestLocalCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lock.NewLocal().Acquire(ctx, "agency")
	require.Error(t, err)
	assert.False(t, errors.IsLocked(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *lock.Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, lock.NewRedis(client, lock.WithTTL(time.Minute))
}

func TestRedis(t *testing.T) {
	ctx := context.Background()
	mr, l := newRedis(t)

	release, err := l.Acquire(ctx, "agency")
	require.NoError(t, err)
	assert.True(t, mr.Exists("harvester:lock:agency"))
	assert.Equal(t, time.Minute, mr.TTL("harvester:lock:agency"))

	_, err = l.Acquire(ctx, "agency")
	require.Error(t, err)
	assert.True(t, errors.IsLocked(err))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("harvester:lock:agency"))

	_, err = l.Acquire(ctx, "agency")
	require.NoError(t, err)
}

func TestRedisExpiredLockNotReleasedByOldHolder(t *testing.T) {
	ctx := context.Background()
	mr, l := newRedis(t)

	stale, err := l.Acquire(ctx, "agency")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = l.Acquire(ctx, "agency")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("harvester:lock:agency"), "new holder keeps the lock")
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := lock.DialRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	_, err = lock.DialRedis(context.Background(), "not a url")
	require.Error(t, err)
}
