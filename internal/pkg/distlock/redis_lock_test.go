package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "scheduler", time.Minute)
	b := NewRedisLock(client, "scheduler", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	require.NoError(t, a.Release(ctx))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "lock acquirable after release")
}

func TestRedisLockReleaseOnlyIfOwned(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "scheduler", time.Minute)
	b := NewRedisLock(client, "scheduler", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// b never acquired; its release must not free a's lock.
	require.NoError(t, b.Release(ctx))

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLockDifferentKeysIndependent(t *testing.T) {
	client := newClient(t)
	ctx := context.Background()

	a := NewRedisLock(client, "scheduler", time.Minute)
	b := NewRedisLock(client, "reaper", time.Minute)

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewLockPrefersRedis(t *testing.T) {
	client := newClient(t)
	lock := NewLock(client, nil, "x", time.Minute)
	_, isRedis := lock.(*RedisLock)
	assert.True(t, isRedis)

	lock = NewLock(nil, nil, "x", time.Minute)
	_, isPG := lock.(*PGAdvisoryLock)
	assert.True(t, isPG)
}
