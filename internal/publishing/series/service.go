// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/lock"
	"github.com/taibuivan/kanko/internal/platform/metrics"
	"github.com/taibuivan/kanko/internal/platform/validate"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/pkg/uuid"
)

// # Service Layer

// OpenResult is the outcome of [Service.OpenSeries].
type OpenResult struct {
	Series *Series

	// Existing is true when an active series already carried the name.
	Existing bool

	// Warning carries a PROVISIONING_PARTIAL_FAILURE; the series is usable.
	Warning error
}

// Service orchestrates series lifecycle operations.
type Service struct {
	store       Store
	schedules   schedule.Store
	provisioner Provisioner
	locker      lock.Locker
	notifier    notify.Notifier
	defaults    Defaults
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs a new [Service]. recorder may be nil.
func NewService(
	store Store,
	schedules schedule.Store,
	provisioner Provisioner,
	locker lock.Locker,
	notifier notify.Notifier,
	defaults Defaults,
	recorder *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:       store,
		schedules:   schedules,
		provisioner: provisioner,
		locker:      locker,
		notifier:    notifier,
		defaults:    defaults,
		metrics:     recorder,
		logger:      logger,
		now:         time.Now,
	}
}

/*
OpenSeries returns the active series named name, creating it if necessary.

Description: Idempotent. An existing active series is returned untouched with
Existing set. Otherwise the backing repository is provisioned, then the
series row and its empty schedule are recorded. Concurrent opens of one name
are serialised by the series lock.

Parameters:
  - ctx: context.Context
  - name: string
  - config: *ClientConfig (Optional, nil uses defaults)

Returns:
  - *OpenResult: The series, whether it existed, and any provisioning warning
  - error: VALIDATION_ERROR, PROVISIONING_FAILED or storage failures
*/
func (service *Service) OpenSeries(ctx context.Context, name string, config *ClientConfig) (*OpenResult, error) {
	name = strings.TrimSpace(name)

	requested := ClientConfig{}
	if config != nil {
		requested = *config
	}

	validator := &validate.Validator{}
	validator.Required(FieldName, name).MaxLen(FieldName, name, MaxNameLength)
	requested.check(validator)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	release, err := service.locker.Acquire(ctx, name)
	if err != nil {
		return nil, lockError(err)
	}
	defer service.release(ctx, name, release)

	// ── 1. Idempotent path ──
	existing, err := service.store.FindActive(ctx, name)
	if err == nil {
		return &OpenResult{Series: existing, Existing: true}, nil
	}
	if !apperr.HasCode(err, apperr.CodeSeriesNotFound) {
		return nil, err
	}

	// ── 2. Provision the repository ──
	now := service.now()
	resolved := requested.Resolve(name, service.defaults)
	if err := resolved.checkStartYear(now.In(service.defaults.location()).Year()); err != nil {
		return nil, err
	}

	createdAt := now.UTC()
	clientID := ClientID(name, createdAt)

	provisioned, err := service.provisioner.Provision(ctx, ProvisionRequest{
		ClientID: clientID,
		Name:     name,
		Config:   resolved,
	})
	if err != nil {
		service.metrics.SeriesProvisioned(false, false)
		if !apperr.IsAppError(err) {
			err = apperr.ProvisioningFailed(err)
		}
		return nil, err
	}

	// ── 3. Record the series and its schedule ──
	created := &Series{
		ID:        uuid.New(),
		Name:      name,
		ClientID:  clientID,
		RepoRef:   provisioned.RepoRef,
		PublicURL: provisioned.PublicURL,
		Status:    StatusActive,
		Config:    resolved,
		CreatedAt: createdAt,
	}
	if !provisioned.HostingReady {
		created.Note = NoteHostingPending
	}

	if err := service.store.Create(ctx, created); err != nil {
		if apperr.HasCode(err, "CONFLICT") {
			if winner, findErr := service.store.FindActive(ctx, name); findErr == nil {
				service.orphaned(ctx, created, winner)
				return &OpenResult{Series: winner, Existing: true}, nil
			}
		}
		return nil, err
	}

	err = service.schedules.Init(ctx, schedule.Schedule{
		SeriesID:            created.ID,
		CadenceMonths:       resolved.Numbering.CadenceMonths,
		VolumeStartYear:     resolved.Numbering.StartYear,
		VolumeDurationYears: resolved.Numbering.VolumeDurationYears,
	})
	if err != nil {
		if statusErr := service.store.SetStatus(ctx, created.ID, StatusInactive); statusErr != nil {
			service.logger.ErrorContext(ctx, "series_deactivate_failed",
				slog.String("series", name),
				slog.Any("error", statusErr),
			)
		}
		service.metrics.SeriesProvisioned(false, false)
		return nil, apperr.ProvisioningFailed(fmt.Errorf("init schedule: %w", err))
	}

	service.metrics.SeriesProvisioned(true, !provisioned.HostingReady)
	service.logger.InfoContext(ctx, "series_opened",
		slog.String("series", name),
		slog.String("client_id", clientID),
		slog.String("repo_ref", created.RepoRef),
		slog.Bool("hosting_ready", provisioned.HostingReady),
	)

	return &OpenResult{Series: created, Warning: provisioned.Warning}, nil
}

// orphaned reports a repository provisioned for an open that lost the race to
// record the series. The repository is left in place for the operator.
func (service *Service) orphaned(ctx context.Context, lost, winner *Series) {
	service.logger.WarnContext(ctx, "series_repository_orphaned",
		slog.String("series", lost.Name),
		slog.String("repo_ref", lost.RepoRef),
		slog.String("active_repo_ref", winner.RepoRef),
	)

	message, err := notify.Render(notify.EventRepositoryOrphaned, notify.RepositoryOrphaned{
		Series:        lost.Name,
		RepoRef:       lost.RepoRef,
		ActiveRepoRef: winner.RepoRef,
	})
	if err == nil {
		err = service.notifier.Send(ctx, message)
	}
	if err != nil {
		service.logger.ErrorContext(ctx, "operator_notification_failed",
			slog.String("event", notify.EventRepositoryOrphaned),
			slog.Any("error", err),
		)
	}
}

// FindActiveSeries returns the active series named name, or SERIES_NOT_FOUND.
func (service *Service) FindActiveSeries(ctx context.Context, name string) (*Series, error) {
	return service.store.FindActive(ctx, strings.TrimSpace(name))
}

// UpdateIssueCount records the latest issue count of a series.
func (service *Service) UpdateIssueCount(ctx context.Context, name string, count int) error {
	if count < 0 {
		return apperr.ValidationError("Issue count must not be negative")
	}
	return service.store.UpdateIssueCount(ctx, strings.TrimSpace(name), count)
}

// List returns a page of series, newest first, with the total count.
func (service *Service) List(ctx context.Context, limit, offset int) ([]*Series, int, error) {
	return service.store.List(ctx, limit, offset)
}

// ListActive returns every active series.
func (service *Service) ListActive(ctx context.Context) ([]*Series, error) {
	return service.store.ListActive(ctx)
}

/*
Schedule returns the schedule of the active series named name.

Returns:
  - *schedule.Schedule: The schedule
  - error: SERIES_NOT_FOUND, or SCHEDULE_UNAVAILABLE if the series has no readable schedule
*/
func (service *Service) Schedule(ctx context.Context, name string) (*schedule.Schedule, error) {
	found, err := service.FindActiveSeries(ctx, name)
	if err != nil {
		return nil, err
	}

	loaded, err := service.schedules.Load(ctx, found.ID)
	if err != nil {
		return nil, apperr.ScheduleUnavailable(err)
	}
	return loaded, nil
}

func (service *Service) release(ctx context.Context, name string, release lock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		service.logger.WarnContext(ctx, "series_lock_release_failed",
			slog.String("series", name),
			slog.Any("error", err),
		)
	}
}

// lockError maps a failed acquisition to a retryable error.
func lockError(err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		return apperr.SeriesBusy(err)
	}
	return apperr.Internal(err)
}
