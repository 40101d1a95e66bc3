// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pgtest connects store integration tests to a real Postgres.
//
// Tests are skipped unless KANKO_TEST_DATABASE_URL is set. Migrations are
// applied once per test binary; tests must use unique series names and codes
// because packages run concurrently against the same database.
package pgtest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/kanko/internal/platform/migration"
	"github.com/taibuivan/kanko/internal/platform/postgres"
)

// EnvDatabaseURL names the variable holding the integration DSN.
const EnvDatabaseURL = "KANKO_TEST_DATABASE_URL"

var (
	migrateOnce sync.Once
	migrateErr  error
)

// Pool returns a migrated pool, or skips the test.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		t.Skipf("integration test skipped: %s is not set", EnvDatabaseURL)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	migrateOnce.Do(func() {
		migrateErr = migration.RunUp(dsn, migrationsPath(), logger)
	})
	if migrateErr != nil {
		t.Fatalf("pgtest: migrations failed: %v", migrateErr)
	}

	pool, err := postgres.NewPool(context.Background(), dsn, logger)
	if err != nil {
		t.Skipf("integration test skipped: Postgres unreachable (%s set): %v", EnvDatabaseURL, err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// migrationsPath locates data/migrations relative to this source file.
func migrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "data", "migrations")
}
