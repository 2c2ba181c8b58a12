// Package lock serializes harvest runs per source.
//
// A Locker never waits: if the key is held, Acquire fails immediately with an
// error matching errors.ErrLocked, and the caller skips the run.
package lock

import (
	"context"
	"sync"

	"github.com/agentstation/harvester/pkg/errors"
)

// Release gives a lock back.
type Release func(ctx context.Context) error

// Locker hands out exclusive, non-blocking locks by key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Local is an in-process keyed lock.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal returns an empty Local locker.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, key string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewLockError(key, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, errors.NewLockError(key, nil)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}

// Held reports whether key is currently locked.
func (l *Local) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

// Noop never contends. It is used by dry runs.
type Noop struct{}

// Acquire implements Locker.
func (Noop) Acquire(context.Context, string) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
