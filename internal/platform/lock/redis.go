// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/kanko/internal/platform/constants"
)

const (
	minPollInterval = 25 * time.Millisecond
	maxPollInterval = 500 * time.Millisecond
)

// Token-checked scripts: a holder can only touch a key that still carries its token.
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisLocker holds keys in Redis under [constants.RedisPrefixSeriesLock].
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker builds a locker whose leases expire after ttl unless refreshed.
func NewRedisLocker(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

// Acquire implements [Locker].
//
// While held, the lease is refreshed every third of its TTL so a long
// submission does not lose the key to expiry.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	redisKey := constants.RedisPrefixSeriesLock + key
	token := uuid.NewString()
	wait := minPollInterval

	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("redis_lock_acquire_failed: %w", err)
		}
		if acquired {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-time.After(wait):
		}

		wait = min(wait*2, maxPollInterval)
	}

	stop := make(chan struct{})
	var refresher sync.WaitGroup
	refresher.Add(1)
	go func() {
		defer refresher.Done()
		l.refresh(redisKey, token, stop)
	}()

	var once sync.Once
	return func(ctx context.Context) error {
		var releaseErr error
		once.Do(func() {
			close(stop)
			refresher.Wait()

			released, err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Int()
			switch {
			case err != nil:
				releaseErr = fmt.Errorf("redis_lock_release_failed: %w", err)
			case released == 0:
				releaseErr = ErrLockLost
			}
		})
		return releaseErr
	}, nil
}

func (l *RedisLocker) refresh(redisKey, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			kept, err := refreshScript.Run(ctx, l.client, []string{redisKey}, token, l.ttl.Milliseconds()).Int()
			cancel()

			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				l.logger.Warn("redis_lock_refresh_failed", slog.String("key", redisKey), slog.Any("error", err))
				continue
			}
			if err == nil && kept == 0 {
				l.logger.Error("redis_lock_lease_lost", slog.String("key", redisKey))
				return
			}
		}
	}
}
