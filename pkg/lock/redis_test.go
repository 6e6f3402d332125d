package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*RedisLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLockFromClient(client), mr
}

func TestRedisLock_LockUnlock(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	token, err := l.Lock(ctx, "pet:rex", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, mr.Exists("lock:pet:rex"))

	other, err := l.Lock(ctx, "pet:rex", time.Minute)
	require.NoError(t, err)
	assert.Empty(t, other, "second lock must fail while held")

	require.NoError(t, l.Unlock(ctx, "pet:rex", token))
	assert.False(t, mr.Exists("lock:pet:rex"))

	token, err = l.Lock(ctx, "pet:rex", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRedisLock_Expires(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	token, err := l.Lock(ctx, "capacity:dc-1:2025-01-06", 10*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	mr.FastForward(11 * time.Second)

	token, err = l.Lock(ctx, "capacity:dc-1:2025-01-06", 10*time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRedisLock_UnlockKeepsNextHoldersLock(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	stale, err := l.Lock(ctx, "pet:rex", 10*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, stale)

	// The first holder overruns its ttl and another request takes the key
	mr.FastForward(11 * time.Second)
	current, err := l.Lock(ctx, "pet:rex", 10*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, current)
	assert.NotEqual(t, stale, current)

	require.NoError(t, l.Unlock(ctx, "pet:rex", stale))
	assert.True(t, mr.Exists("lock:pet:rex"), "late release must not free the new holder")

	value, err := mr.Get("lock:pet:rex")
	require.NoError(t, err)
	assert.Equal(t, current, value)

	require.NoError(t, l.Unlock(ctx, "pet:rex", current))
	assert.False(t, mr.Exists("lock:pet:rex"))
}

func TestAcquireAll(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	release, err := AcquireAll(ctx, l, time.Minute, 0, "pet:rex", "capacity:dc-1:2025-01-06", "pet:rex")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:pet:rex"))
	assert.True(t, mr.Exists("lock:capacity:dc-1:2025-01-06"))

	release()
	assert.False(t, mr.Exists("lock:pet:rex"))
	assert.False(t, mr.Exists("lock:capacity:dc-1:2025-01-06"))
}

func TestAcquireAll_WaitsForRelease(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	token, err := l.Lock(ctx, "capacity:dc-1:2025-01-06", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	go func() {
		time.Sleep(100 * time.Millisecond)
		l.Unlock(context.Background(), "capacity:dc-1:2025-01-06", token)
	}()

	started := time.Now()
	release, err := AcquireAll(ctx, l, time.Minute, 2*time.Second, "capacity:dc-1:2025-01-06")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 100*time.Millisecond)
	assert.True(t, mr.Exists("lock:capacity:dc-1:2025-01-06"))

	release()
	assert.False(t, mr.Exists("lock:capacity:dc-1:2025-01-06"))
}

func TestAcquireAll_BusyReleasesPartialLocks(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestLock(t)

	token, err := l.Lock(ctx, "pet:rex", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// "capacity:..." sorts before "pet:..." so it is taken first, then released
	_, err = AcquireAll(ctx, l, time.Minute, 50*time.Millisecond, "pet:rex", "capacity:dc-1:2025-01-06")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusy))
	assert.False(t, mr.Exists("lock:capacity:dc-1:2025-01-06"))
	assert.True(t, mr.Exists("lock:pet:rex"), "lock held by the other request is untouched")
}

func TestAcquireAll_StopsWaitingWhenContextEnds(t *testing.T) {
	l, _ := newTestLock(t)

	token, err := l.Lock(context.Background(), "pet:rex", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = AcquireAll(ctx, l, time.Minute, time.Minute, "pet:rex")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBusy))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestAcquireAll_RedisDown(t *testing.T) {
	l, mr := newTestLock(t)
	mr.Close()

	_, err := AcquireAll(context.Background(), l, time.Minute, time.Second, "pet:rex")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrBusy))
}

func TestNoop(t *testing.T) {
	release, err := AcquireAll(context.Background(), Noop{}, time.Minute, 0, "a", "b")
	require.NoError(t, err)
	release()
}

func TestKeys(t *testing.T) {
	day := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "roster:s-1:2025-01-06", RosterKey("s-1", day))
	assert.Equal(t, "capacity:dc-1:2025-01-06", CapacityKey("dc-1", day))
	assert.Equal(t, "pet:rex", PetKey("rex"))
}
