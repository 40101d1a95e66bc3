// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package scheduler runs periodic background jobs on robfig/cron.

Every job runs through two wrappers: panic recovery and structured start/finish
logging with a per-execution ID. Overlapping runs of the same job are skipped.
*/
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler owns the cron runner and the base context handed to jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a scheduler evaluating cron expressions in location.
// Each execution is bounded by timeout.
func New(location *time.Location, timeout time.Duration, logger *slog.Logger) *Scheduler {
	logger = logger.With(slog.String("system", "scheduler"))
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cronLogger{logger: logger}),
			cron.WithChain(
				recoverWrapper(logger),
				cron.SkipIfStillRunning(cronLogger{logger: logger}),
			),
		),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register schedules job on a standard five-field cron expression.
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddJob(spec, s.wrap(job))
	if err != nil {
		return fmt.Errorf("scheduler: invalid spec %q for %s: %w", spec, job.Name(), err)
	}
	s.logger.Info("job_registered", slog.String("job_name", job.Name()), slog.String("spec", spec))
	return nil
}

// Start begins running registered jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler_stop_timeout")
	}
}

// RunNow executes job once, synchronously, with the same logging as a scheduled run.
func (s *Scheduler) RunNow(job Job) {
	recoverWrapper(s.logger)(s.wrap(job)).Run()
}

// wrap adapts a [Job] to cron.Job with structured logging.
func (s *Scheduler) wrap(job Job) cron.Job {
	return cron.FuncJob(func() {
		jobLogger := s.logger.With(
			slog.String("job_name", job.Name()),
			slog.String("execution_id", uuid.NewString()),
		)

		ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
		defer cancel()

		startTime := time.Now()
		jobLogger.Info("job_started")

		if err := job.Run(ctx); err != nil {
			jobLogger.Error("job_failed",
				slog.Duration("duration", time.Since(startTime)),
				slog.Any("error", err),
			)
			return
		}

		jobLogger.Info("job_finished", slog.Duration("duration", time.Since(startTime)))
	})
}

// recoverWrapper turns a job panic into an error log with the stack trace.
func recoverWrapper(logger *slog.Logger) cron.JobWrapper {
	return func(job cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					logger.Error("job_panicked",
						slog.Any("panic", recovered),
						slog.String("stack_trace", string(debug.Stack())),
					)
				}
			}()
			job.Run()
		})
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
