package services

import (
	"context"
	"testing"
	"time"

	"github.com/jakechorley/daycare-scheduler/pkg/db/dbtest"
)

type fakeDB = dbtest.Fake

var monday = dbtest.Monday

func newFakeDB() *fakeDB { return dbtest.NewSeeded() }

func at(day time.Time, hour, minute int) time.Time { return dbtest.At(day, hour, minute) }

// fakeLocker refuses keys listed in busy and records what it was asked for
type fakeLocker struct {
	busy     map[string]bool
	held     map[string]bool
	acquired []string
}

func newFakeLocker(busy ...string) *fakeLocker {
	l := &fakeLocker{busy: map[string]bool{}, held: map[string]bool{}}
	for _, k := range busy {
		l.busy[k] = true
	}
	return l
}

func (l *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if l.busy[key] || l.held[key] {
		return "", nil
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return "token-" + key, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key, token string) error {
	if token == "token-"+key {
		delete(l.held, key)
	}
	return nil
}

// shortLockWait stops requests queueing long behind a lock that never frees
func shortLockWait(t *testing.T) {
	t.Helper()
	prev := lockWait
	lockWait = 50 * time.Millisecond
	t.Cleanup(func() { lockWait = prev })
}
