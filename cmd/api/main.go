// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Kanko HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the storage backend (PostgreSQL + migrations, or memory).
//  4. Open the per-series lock backend (Redis, or memory).
//  5. Open the repository host (GitHub, or embedded badger).
//  6. Wire notifier, artifact builder and domain services.
//  7. Start the report scheduler.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/kanko/internal/api"
	"github.com/taibuivan/kanko/internal/platform/config"
	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/platform/lock"
	"github.com/taibuivan/kanko/internal/platform/metrics"
	"github.com/taibuivan/kanko/internal/platform/migration"
	pgstore "github.com/taibuivan/kanko/internal/platform/postgres"
	redisstore "github.com/taibuivan/kanko/internal/platform/redis"
	"github.com/taibuivan/kanko/internal/platform/scheduler"
	"github.com/taibuivan/kanko/internal/platform/sec"
	"github.com/taibuivan/kanko/internal/publishing/artifact"
	"github.com/taibuivan/kanko/internal/publishing/ledger"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/pipeline"
	"github.com/taibuivan/kanko/internal/publishing/provision"
	"github.com/taibuivan/kanko/internal/publishing/report"
	"github.com/taibuivan/kanko/internal/publishing/repohost"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// reportJobTimeout bounds one monthly report run.
const reportJobTimeout = 5 * time.Minute

// stores groups the persistence backends selected by STORE_DRIVER.
type stores struct {
	series    series.Store
	schedules schedule.Store
	codes     ledger.Store
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String(constants.FieldApp, "kanko"))
	slog.SetDefault(log)

	log.Info("[Kanko] service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String(constants.FieldApp, "kanko"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("lock_driver", cfg.LockDriver),
		slog.String("repo_host_driver", cfg.RepoHostDriver),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	recorder := metrics.New()
	var checks []api.HealthCheck

	// ── 3. Storage ────────────────────────────────────────────────────────
	var backends stores
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		backends = postgresStores(pool)
		checks = append(checks, api.HealthCheck{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		})
	default:
		log.Warn("memory_store_enabled", slog.String("reason", "STORE_DRIVER=memory; state is lost on restart"))
		backends = stores{
			series:    series.NewMemoryStore(),
			schedules: schedule.NewMemoryStore(),
			codes:     ledger.NewMemoryStore(),
		}
	}

	// ── 4. Series Lock ────────────────────────────────────────────────────
	var locker lock.Locker
	switch cfg.LockDriver {
	case config.DriverRedis:
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, cfg.LockTTL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()

		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, log)
		checks = append(checks, redisCheck(rdb))
	default:
		locker = lock.NewMemoryLocker()
	}

	// ── 5. Repository Host ────────────────────────────────────────────────
	var host repohost.Host
	switch cfg.RepoHostDriver {
	case config.DriverGitHub:
		host = repohost.NewGitHubHost(rootCtx, repohost.GitHubConfig{
			APIURL:       cfg.GitHubAPIURL,
			Token:        cfg.GitHubToken,
			Owner:        cfg.GitHubOwner,
			PagesBaseURL: cfg.PagesBaseURL,
		})
	default:
		local, err := repohost.NewLocalHost(repohost.LocalConfig{
			Path:         cfg.LocalRepoPath,
			Owner:        "kanko",
			PagesBaseURL: cfg.PagesBaseURL,
		}, log)
		must(log, err, "open local repository host")
		defer func() {
			if cerr := local.Close(); cerr != nil {
				log.Error("local_repo_close_error", slog.Any("error", cerr))
			}
		}()
		host = local
	}
	host = repohost.Retrying(host, cfg.ExternalCallAttempts, cfg.ExternalCallTimeout, recorder, log)

	// ── 6. Auth Service ───────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if cfg.SMTPHost != "" && cfg.NotifyEmail != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.NotifyFrom,
			To:       cfg.NotifyEmail,
			Timeout:  cfg.ExternalCallTimeout,
		})
	}

	builder, err := artifact.NewBuilder(artifact.Config{FontPath: cfg.PDFFontPath, QRBaseURL: cfg.QRBaseURL})
	must(log, err, "initialize artifact builder")

	generator, err := ledger.NewGenerator()
	must(log, err, "initialize code generator")

	location := cfg.Location()

	seriesService := series.NewService(
		backends.series,
		backends.schedules,
		provision.NewService(host, notifier, log),
		locker,
		notifier,
		series.Defaults{
			VolumeStartYear:     cfg.DefaultVolumeStartYear,
			VolumeDurationYears: cfg.DefaultVolumeDurationYears,
			CadenceMonths:       cfg.DefaultCadenceMonths,
			Location:            location,
		},
		recorder,
		log,
	)

	pipelineService := pipeline.NewService(pipeline.Dependencies{
		Registry:  seriesService,
		Schedules: backends.schedules,
		Host:      host,
		Renderer:  builder,
		Locker:    locker,
		Notifier:  notifier,
		Metrics:   recorder,
		Logger:    log,
		Location:  location,
	})

	ledgerService := ledger.NewService(backends.codes, generator, recorder, log)
	reportService := report.NewService(seriesService, backends.schedules, location, log)

	// ── 8. Scheduler ──────────────────────────────────────────────────────
	jobs := scheduler.New(location, reportJobTimeout, log)
	must(log, jobs.Register(cfg.ReportCron, report.NewJob(reportService, notifier, log)), "register report job")
	jobs.Start()

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	liveness, readiness := api.NewHealthHandlers(checks, log)

	server := api.NewServer(rootCtx, cfg, log, jwtSvc, recorder, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Requests:  api.NewRequestHandler(seriesService, pipelineService, ledgerService),
		Series:    series.NewHandler(seriesService),
		Reports:   report.NewHandler(reportService),
	})

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	jobs.Stop(stopCtx)

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		series:    series.NewPostgresStore(pool),
		schedules: schedule.NewPostgresStore(pool),
		codes:     ledger.NewPostgresStore(pool),
	}
}

func redisCheck(client redis.UniversalClient) api.HealthCheck {
	return api.HealthCheck{
		Name:  "redis",
		Check: func(ctx context.Context) error { return redisstore.Ping(ctx, client) },
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
