// Package lock serializes concurrent writers to the same roster day, daycare
// day or pet across service instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another request still holds a lock after AcquireAll
// has waited for it
var ErrBusy = errors.New("resource is busy, retry later")

// Locker acquires and releases named locks. Lock returns an owner token, or ""
// when the key is held elsewhere; Unlock only releases a key still held under
// that token.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

// RedisLock implements Locker with SET NX and a compare-and-delete release
type RedisLock struct {
	client *redis.Client
}

// unlockScript deletes the key only if it still carries the caller's token, so
// a request whose lock expired cannot release the next holder's lock
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLock connects to redis and checks the connection
func NewRedisLock(ctx context.Context, redisAddr string) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisLock{client: client}, nil
}

// NewRedisLockFromClient wraps an existing client
func NewRedisLockFromClient(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, redisKey(key), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (r *RedisLock) Unlock(ctx context.Context, key, token string) error {
	if err := unlockScript.Run(ctx, r.client, []string{redisKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Close closes the redis client
func (r *RedisLock) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// Noop never blocks. It is used when redis is not configured and the
// serializable transaction alone guards the invariants.
type Noop struct{}

func (Noop) Lock(context.Context, string, time.Duration) (string, error) { return "noop", nil }
func (Noop) Unlock(context.Context, string, string) error               { return nil }

const (
	minRetryDelay = 10 * time.Millisecond
	maxRetryDelay = 200 * time.Millisecond
)

// AcquireAll takes every key in sorted order. A held key is retried with a
// doubling delay until wait has passed or ctx is done; only then does it give
// up with ErrBusy, releasing what it took. The returned release function is
// safe to defer.
func AcquireAll(ctx context.Context, l Locker, ttl, wait time.Duration, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	type heldLock struct{ key, token string }
	var held []heldLock
	release := func() {
		// Release with a fresh context so a cancelled request still frees its locks
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			l.Unlock(releaseCtx, held[i].key, held[i].token)
		}
	}

	deadline := time.Now().Add(wait)
	for i, key := range sorted {
		if i > 0 && key == sorted[i-1] {
			continue
		}
		token, err := lockWithin(ctx, l, key, ttl, deadline)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, heldLock{key: key, token: token})
	}
	return release, nil
}

// lockWithin retries key until it is taken, the deadline passes or ctx ends
func lockWithin(ctx context.Context, l Locker, key string, ttl time.Duration, deadline time.Time) (string, error) {
	delay := minRetryDelay
	for waited := false; ; waited = true {
		token, err := l.Lock(ctx, key, ttl)
		if err != nil {
			if waited && ctx.Err() != nil {
				return "", fmt.Errorf("lock %s: %w: %w", key, ErrBusy, ctx.Err())
			}
			return "", err
		}
		if token != "" {
			return token, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", fmt.Errorf("lock %s: %w", key, ErrBusy)
		}
		timer := time.NewTimer(min(delay, remaining))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("lock %s: %w: %w", key, ErrBusy, ctx.Err())
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// RosterKey guards the shifts of one staff member on one day
func RosterKey(staffID string, day time.Time) string {
	return fmt.Sprintf("roster:%s:%s", staffID, day.Format("2006-01-02"))
}

// CapacityKey guards the capacity of one daycare on one date
func CapacityKey(daycareID string, date time.Time) string {
	return fmt.Sprintf("capacity:%s:%s", daycareID, date.Format("2006-01-02"))
}

// PetKey guards the bookings of one pet
func PetKey(petID string) string {
	return fmt.Sprintf("pet:%s", petID)
}
