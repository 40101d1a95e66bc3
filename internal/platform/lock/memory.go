// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lock

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLocker is a keyed semaphore living in the current process.
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	held chan struct{}
	refs int
}

// NewMemoryLocker returns an empty [MemoryLocker].
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{slots: make(map[string]*slot)}
}

// Acquire implements [Locker].
func (l *MemoryLocker) Acquire(ctx context.Context, key string) (Release, error) {
	l.mu.Lock()
	current, ok := l.slots[key]
	if !ok {
		current = &slot{held: make(chan struct{}, 1)}
		l.slots[key] = current
	}
	current.refs++
	l.mu.Unlock()

	select {
	case current.held <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, current)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-current.held
			l.unref(key, current)
		})
		return nil
	}, nil
}

// unref drops the slot once nobody holds or waits on it.
func (l *MemoryLocker) unref(key string, current *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current.refs--
	if current.refs == 0 {
		delete(l.slots, key)
	}
}
