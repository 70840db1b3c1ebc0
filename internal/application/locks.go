package application

import (
	"context"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long a mutation waits for a schedule lock
// before giving up with ErrBusy.
const DefaultLockTimeout = 5 * time.Second

// ScheduleLocks serializes mutations per schedule. Operations on different
// schedules never block each other; a second mutation on the same schedule
// waits up to the timeout, then fails with ErrBusy.
type ScheduleLocks struct {
	timeout time.Duration

	mu    sync.Mutex
	locks map[string]*scheduleLock
}

type scheduleLock struct {
	sem  chan struct{}
	refs int
}

// NewScheduleLocks creates a lock set with the given acquire timeout. A zero
// or negative timeout falls back to DefaultLockTimeout.
func NewScheduleLocks(timeout time.Duration) *ScheduleLocks {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &ScheduleLocks{
		timeout: timeout,
		locks:   make(map[string]*scheduleLock),
	}
}

// Acquire takes the lock for the given key, returning a release function.
// It fails with ErrBusy when the timeout elapses first, or with the context
// error when the context is cancelled while waiting.
func (l *ScheduleLocks) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &scheduleLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() {
				<-entry.sem
				l.unref(key, entry)
			})
		}
		return release, nil
	case <-timer.C:
		l.unref(key, entry)
		return nil, ErrBusy
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, ctx.Err()
	}
}

// unref drops one reference and forgets the key once nobody holds or waits
// for it.
func (l *ScheduleLocks) unref(key string, entry *scheduleLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}
