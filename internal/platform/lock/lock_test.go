// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lock_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/platform/lock"
)

// exerciseExclusion runs workers goroutines that each increment a shared
// counter inside the lock and checks nobody overlapped.
func exerciseExclusion(t *testing.T, locker lock.Locker, key string, workers int) {
	t.Helper()

	var (
		inside  atomic.Int32
		overlap atomic.Bool
		total   atomic.Int32
		wg      sync.WaitGroup
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			release, err := locker.Acquire(context.Background(), key)
			if !assert.NoError(t, err) {
				return
			}

			if inside.Add(1) > 1 {
				overlap.Store(true)
			}
			total.Add(1)
			time.Sleep(time.Millisecond)
			inside.Add(-1)

			assert.NoError(t, release(context.Background()))
		}()
	}

	wg.Wait()
	assert.False(t, overlap.Load(), "two holders overlapped")
	assert.EqualValues(t, workers, total.Load())
}

func TestMemoryLocker_Exclusion(t *testing.T) {
	exerciseExclusion(t, lock.NewMemoryLocker(), "acme", 20)
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	locker := lock.NewMemoryLocker()

	release, err := locker.Acquire(context.Background(), "acme")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "acme")
	assert.ErrorIs(t, err, lock.ErrNotAcquired)

	// Other keys are independent.
	otherRelease, err := locker.Acquire(context.Background(), "globex")
	require.NoError(t, err)
	assert.NoError(t, otherRelease(context.Background()))

	assert.NoError(t, release(context.Background()))
	assert.NoError(t, release(context.Background()), "second release is a no-op")

	again, err := locker.Acquire(context.Background(), "acme")
	require.NoError(t, err)
	assert.NoError(t, again(context.Background()))
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("KANKO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("KANKO_TEST_REDIS_URL not set")
	}

	options, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(options)
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	locker := lock.NewRedisLocker(client, 2*time.Second, logger)
	key := "test-" + time.Now().Format("150405.000000")

	exerciseExclusion(t, locker, key, 8)

	release, err := locker.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, lock.ErrNotAcquired)

	assert.NoError(t, release(context.Background()))
}
