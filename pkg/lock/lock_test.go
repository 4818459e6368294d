package lock_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/pvm/pkg/lock"
)

func testLocker(t *testing.T, locker lock.Locker) {
	t.Helper()

	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "execution:1", time.Second)
	require.NoError(t, err)

	other, err := locker.Lock(ctx, "execution:2", time.Second)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(waitCtx, "execution:1", time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lock.ErrLockAcquire))

	require.NoError(t, unlock(ctx))

	again, err := locker.Lock(ctx, "execution:1", time.Second)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestLocal(t *testing.T) {
	testLocker(t, lock.NewLocal())
}

func TestLocal_DropsReleasedKeys(t *testing.T) {
	ctx := context.Background()
	locker := lock.NewLocal()

	for i := range 100 {
		unlock, err := locker.Lock(ctx, fmt.Sprintf("execution:%d", i), time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
		require.NoError(t, unlock(ctx))
	}

	assert.Zero(t, locker.Keys())

	held, err := locker.Lock(ctx, "execution:1", time.Second)
	require.NoError(t, err)

	acquired := make(chan lock.UnlockFunc)

	go func() {
		waiter, err := locker.Lock(ctx, "execution:1", time.Second)
		assert.NoError(t, err)

		acquired <- waiter
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(waitCtx, "execution:1", time.Second)
	require.ErrorIs(t, err, lock.ErrLockAcquire)
	assert.Equal(t, 1, locker.Keys())

	require.NoError(t, held(ctx))

	waiter := <-acquired
	assert.Equal(t, 1, locker.Keys())

	require.NoError(t, waiter(ctx))
	assert.Zero(t, locker.Keys())
}

func TestRedis(t *testing.T) {
	server := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: server.Addr()})

	testLocker(t, lock.NewRedis(client, "pvm:"))
}

func TestRedis_StaleUnlockKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	server := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: server.Addr()})
	locker := lock.NewRedis(client, "pvm:")

	stale, err := locker.Lock(ctx, "execution:1", time.Second)
	require.NoError(t, err)

	server.FastForward(2 * time.Second)

	current, err := locker.Lock(ctx, "execution:1", time.Second)
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	assert.True(t, server.Exists("pvm:lock:execution:1"))

	require.NoError(t, current(ctx))
	assert.False(t, server.Exists("pvm:lock:execution:1"))
}
