// Package lock serializes work on one execution across handler instances.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockAcquire is returned when the lock cannot be acquired.
var ErrLockAcquire = errors.New("failed to acquire lock")

// UnlockFunc releases a lock. It is safe to call after the lock expired.
type UnlockFunc func(ctx context.Context) error

type Locker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl if never released.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// Local is a Locker for a single process. A key's slot is dropped once no
// holder or waiter references it.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocal() *Local {
	return &Local{slots: map[string]*slot{}}
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}

	s.refs++

	return s
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Keys returns how many keys are currently held or waited on.
func (l *Local) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.slots)
}

// Lock ignores ttl; the lock is held until released.
func (l *Local) Lock(ctx context.Context, key string, _ time.Duration) (UnlockFunc, error) {
	s := l.acquire(key)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)

		return nil, errors.Join(ErrLockAcquire, ctx.Err())
	}

	var once sync.Once

	return func(context.Context) error {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})

		return nil
	}, nil
}
