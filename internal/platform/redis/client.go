// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis provides a managed client for the distributed series lock.

Only short-lived keys live here: every key carries a TTL, so a crashed holder
never blocks a series forever.
*/
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// # Defaults

const (
	dialTimeout = 3 * time.Second
	pingTimeout = 2 * time.Second

	// ioTimeout caps a single command. It is lowered for short leases so a
	// refresh round-trip always fits inside one refresh interval.
	ioTimeout = 2 * time.Second

	// Lock traffic is a handful of SETNX/EVAL calls per submission.
	poolSize     = 4
	minIdleConns = 1
)

// NewClient parses a Redis URL and returns a client tuned for series leases.
//
// # Parameters
//   - ctx: Context for the initial ping.
//   - redisURL: Redis connection URL.
//   - leaseTTL: Lifetime of a series lock; command timeouts are derived from it.
//   - logger: Structured logger for connection events.
func NewClient(ctx context.Context, redisURL string, leaseTTL time.Duration, logger *slog.Logger) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = poolSize
	options.MinIdleConns = minIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = commandTimeout(leaseTTL)
	options.WriteTimeout = options.ReadTimeout

	client := redis.NewClient(options)

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("redis_client_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
		slog.Duration("command_timeout", options.ReadTimeout),
	)

	return client, nil
}

// commandTimeout returns the per-command timeout for a lease of ttl.
// Leases refresh every third of their TTL.
func commandTimeout(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ioTimeout
	}
	return min(ioTimeout, ttl/6)
}

// Ping verifies that the Redis client is healthy.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}

	return nil
}
