package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/miniapp-shop/internal/lock"
)

func newLocker(t *testing.T) (*lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &lock.Locker{Client: rdb}, mr
}

func TestAcquireIsExclusive(t *testing.T) {
	t.Parallel()
	locker, _ := newLocker(t)
	ctx := context.Background()

	release, ok, err := locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "held lock must not be acquirable")

	release()
	release2, ok, err := locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "released lock must be acquirable again")
	release2()
}

func TestLockExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	locker, mr := newLocker(t)
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	release, ok, err := locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "expired lock must be acquirable")
	release()
}

func TestStaleHolderCannotReleaseSuccessor(t *testing.T) {
	t.Parallel()
	locker, mr := newLocker(t)
	ctx := context.Background()

	staleRelease, ok, err := locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The first holder's release carries the old token and must be a no-op.
	staleRelease()
	_, ok, err = locker.Acquire(ctx, "tracking-refresh", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNamesAreIndependent(t *testing.T) {
	t.Parallel()
	locker, _ := newLocker(t)
	ctx := context.Background()

	_, ok, err := locker.Acquire(ctx, "job-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release, ok, err := locker.Acquire(ctx, "job-b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "locks with different names must not collide")
	release()
}
