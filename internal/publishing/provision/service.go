// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package provision stands up the backing repository of a new series.

Steps, in order:

 1. Create the repository newsletter-client-<clientID>.
 2. Commit the scaffold (client config, empty schedule, archive page,
    auto-merge workflow, materials/ and output/) in one commit on main.
 3. Enable static hosting of main.

A failure of step 1 or 2 is fatal. A failure of step 3 leaves a usable
series: the result reports HostingReady=false with a
PROVISIONING_PARTIAL_FAILURE warning and the operator is notified.
*/
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/repohost"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// Step names reported in warnings and notifications.
const (
	StepCreateRepo    = "create_repo"
	StepScaffold      = "scaffold"
	StepEnableHosting = "enable_hosting"
)

// Request and Result are the [series.Provisioner] contract.
type (
	Request = series.ProvisionRequest
	Result  = series.ProvisionResult
)

// Service implements [series.Provisioner] on a [repohost.Host].
type Service struct {
	host     repohost.Host
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService constructs a new [Service].
func NewService(host repohost.Host, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{host: host, notifier: notifier, logger: logger}
}

// RepoName returns the repository name of a client ID.
func RepoName(clientID string) string {
	return constants.RepoNamePrefix + clientID
}

/*
Provision creates and scaffolds the repository of a new series.

Parameters:
  - ctx: context.Context
  - request: Request (ClientID, Name and the resolved Config)

Returns:
  - Result: Repository handle, public URL and hosting state
  - error: PROVISIONING_FAILED when no usable repository exists
*/
func (service *Service) Provision(ctx context.Context, request Request) (Result, error) {
	logger := service.logger.With(
		slog.String("series", request.Name),
		slog.String("client_id", request.ClientID),
	)

	// ── 1. Repository ──
	repo, err := service.host.CreateRepo(ctx, RepoName(request.ClientID),
		fmt.Sprintf("%s (%s)", request.Config.Branding.PublicationName, request.Name))
	if err != nil {
		return Result{}, service.fail(ctx, logger, request, StepCreateRepo, err)
	}

	branch := repo.DefaultBranch
	if branch == "" {
		branch = constants.MainBranch
	}

	// ── 2. Scaffold ──
	files, err := Scaffold(request)
	if err != nil {
		return Result{}, service.fail(ctx, logger, request, StepScaffold, err)
	}
	if _, err := service.host.CommitFiles(ctx, repo.Ref, branch, "Provision "+repo.Name, files); err != nil {
		return Result{}, service.fail(ctx, logger, request, StepScaffold, err)
	}

	result := Result{RepoRef: repo.Ref, HostingReady: true}

	// ── 3. Hosting ──
	publicURL, err := service.host.EnableHosting(ctx, repo.Ref, branch)
	if err != nil {
		result.HostingReady = false
		result.Warning = apperr.ProvisioningPartialFailure(StepEnableHosting, err)

		logger.WarnContext(ctx, "series_hosting_pending",
			slog.String("repo_ref", repo.Ref),
			slog.Any("error", err),
		)
		service.notify(ctx, logger, notify.EventProvisioningDegraded, notify.ProvisioningDegraded{
			Series:  request.Name,
			RepoRef: repo.Ref,
			Step:    StepEnableHosting,
			Error:   err.Error(),
		})
		return result, nil
	}
	result.PublicURL = publicURL

	logger.InfoContext(ctx, "series_provisioned",
		slog.String("repo_ref", repo.Ref),
		slog.String("public_url", publicURL),
	)
	service.notify(ctx, logger, notify.EventSeriesProvisioned, notify.SeriesProvisioned{
		Series:    request.Name,
		RepoRef:   repo.Ref,
		PublicURL: publicURL,
	})

	return result, nil
}

func (service *Service) fail(ctx context.Context, logger *slog.Logger, request Request, step string, cause error) error {
	logger.ErrorContext(ctx, "series_provisioning_failed",
		slog.String("step", step),
		slog.Any("error", cause),
	)
	service.notify(ctx, logger, notify.EventProvisioningFailed, notify.ProvisioningFailed{
		Series: request.Name,
		Step:   step,
		Error:  cause.Error(),
	})
	return apperr.ProvisioningFailed(fmt.Errorf("%s: %w", step, cause))
}

// notify sends an operator message; delivery failures are only logged.
func (service *Service) notify(ctx context.Context, logger *slog.Logger, event string, data any) {
	message, err := notify.Render(event, data)
	if err == nil {
		err = service.notifier.Send(ctx, message)
	}
	if err != nil {
		logger.WarnContext(ctx, "operator_notification_failed",
			slog.String("event", event),
			slog.Any("error", err),
		)
	}
}
