// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package lock provides per-key mutual exclusion for series mutations.

Two backends implement [Locker]:

  - [RedisLocker]: SET NX PX with a random token, a token-checked release and a
    lease refresher, for deployments running more than one API instance.
  - [MemoryLocker]: an in-process keyed semaphore, for single-instance
    deployments and tests.

Both block until the key is free or the context is done.
*/
package lock

import (
	"context"
	"errors"
)

var (
	// ErrNotAcquired is returned when the context ends before the key is free.
	ErrNotAcquired = errors.New("lock: not acquired")

	// ErrLockLost is returned by a release whose lease had already expired.
	ErrLockLost = errors.New("lock: lease lost before release")
)

// Release gives the key back. Calling it more than once is a no-op.
type Release func(ctx context.Context) error

// Locker serialises work per key.
type Locker interface {
	// Acquire blocks until key is held by the caller or ctx is done.
	Acquire(ctx context.Context, key string) (Release, error)
}
