// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pipeline turns a content batch into a numbered, committed and
publication-requested issue of a series.

Flow of [Service.Submit]:

 1. Resolve the active series. Nothing is written for an unknown series.
 2. Validate the title and content references.
 3. Take the series lock and load its schedule.
 4. Replay: a source ref already in the schedule reuses its serial.
 5. Number the issue.
 6. Render the artifact.
 7. Branch from the previous issue and commit the artifact, the materials
    manifest and schedule.json in one commit.
 8. Append the issue to the schedule store (compare-and-swap). A rejected
    append deletes the branch.
 9. Open the merge request into main.
 10. Release the lock, record the issue count and notify the operator.

A serial is consumed only once step 8 succeeds.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/platform/ctxutil"
	"github.com/taibuivan/kanko/internal/platform/lock"
	"github.com/taibuivan/kanko/internal/platform/metrics"
	"github.com/taibuivan/kanko/internal/platform/validate"
	"github.com/taibuivan/kanko/internal/publishing/artifact"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/numbering"
	"github.com/taibuivan/kanko/internal/publishing/repohost"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// Field names used in validation errors.
const (
	FieldTitle = "title"
	FieldURLs  = "urls"

	// MetadataOrderID is the metadata key whose value identifies a submission
	// across retries.
	MetadataOrderID = "orderId"
)

// MaxTitleLength bounds an issue title in characters.
const MaxTitleLength = 200

// # Contracts

// Registry resolves series and records their issue counts.
type Registry interface {
	FindActiveSeries(ctx context.Context, name string) (*series.Series, error)
	UpdateIssueCount(ctx context.Context, name string, count int) error
}

// Renderer builds the artifact of one issue.
type Renderer interface {
	Build(in artifact.Input) (*artifact.Artifact, error)
}

// # Request & Result

// Request is one ndl_submit payload.
type Request struct {
	SeriesName string         `json:"seriesName"`
	Title      string         `json:"title"`
	URLs       []string       `json:"urls"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// orderID returns the caller-supplied idempotency key, if any.
func (r Request) orderID() string {
	if value, ok := r.Metadata[MetadataOrderID].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// Result describes a published (or replayed) issue.
type Result struct {
	SubmissionID    string `json:"submissionId"`
	Serial          int    `json:"serial"`
	Volume          int    `json:"volume"`
	Number          int    `json:"number"`
	Filename        string `json:"filename"`
	ArtifactPath    string `json:"artifactPath"`
	PublicURL       string `json:"publicUrl,omitempty"`
	MergeRequestURL string `json:"mergeRequestUrl,omitempty"`

	// Replayed is true when the source ref had already been numbered.
	Replayed bool `json:"replayed,omitempty"`
}

// # Service Layer

// Service runs submissions.
type Service struct {
	registry  Registry
	schedules schedule.Store
	host      repohost.Host
	renderer  Renderer
	locker    lock.Locker
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
}

// Dependencies groups the collaborators of a [Service].
type Dependencies struct {
	Registry  Registry
	Schedules schedule.Store
	Host      repohost.Host
	Renderer  Renderer
	Locker    lock.Locker
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics // Optional
	Logger    *slog.Logger

	// Location is the zone issue dates are taken in. Defaults to UTC.
	Location *time.Location

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewService constructs a new [Service].
func NewService(deps Dependencies) *Service {
	service := &Service{
		registry:  deps.Registry,
		schedules: deps.Schedules,
		host:      deps.Host,
		renderer:  deps.Renderer,
		locker:    deps.Locker,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		location:  deps.Location,
		now:       deps.Now,
	}
	if service.location == nil {
		service.location = time.UTC
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

// BranchName returns the isolated branch of one submission.
func BranchName(serial int, submissionID string) string {
	return fmt.Sprintf("%stq-%05d-%s", constants.SubmitBranchPrefix, serial, strings.ToLower(submissionID))
}

// ArtifactPath returns the repository path of an artifact.
func ArtifactPath(serial int) string {
	return constants.PathOutput + "/" + numbering.Filename(serial)
}

// submission carries the state of one [Service.Submit] call.
type submission struct {
	id        string
	request   Request
	sourceRef string
	series    *series.Series
	logger    *slog.Logger
	stage     Stage

	// reportable is set once caller input is accepted; later failures are
	// the operator's to handle.
	reportable bool
}

/*
Submit numbers, commits and publishes one content batch.

Parameters:
  - ctx: context.Context
  - request: Request (SeriesName, Title and URLs are required)

Returns:
  - *Result: The issue's serial, artifact name and public location
  - error: A [*StageError] wrapping SERIES_NOT_FOUND, VALIDATION_ERROR,
    EMPTY_CONTENT_SET, SERIES_BUSY, SCHEDULE_UNAVAILABLE, ARTIFACT_BUILD_FAILED,
    COMMIT_FAILED or PUBLISH_REQUEST_FAILED
*/
func (service *Service) Submit(ctx context.Context, request Request) (*Result, error) {
	run := &submission{
		id:      ulid.Make().String(),
		request: request,
		stage:   StageReceived,
	}
	run.request.SeriesName = strings.TrimSpace(request.SeriesName)
	run.request.Title = strings.TrimSpace(request.Title)
	run.sourceRef = request.orderID()
	if run.sourceRef == "" {
		run.sourceRef = run.id
	}

	ctx = ctxutil.WithSubmissionID(ctx, run.id)
	run.logger = service.logger.With(
		slog.String("submission_id", run.id),
		slog.String("series", run.request.SeriesName),
	)
	run.logger.InfoContext(ctx, "submission_received", slog.String("source_ref", run.sourceRef))

	result, err := service.submit(ctx, run)
	if err != nil {
		service.metrics.SubmissionFinished(string(StageOf(err)), false)
		return nil, err
	}

	service.metrics.SubmissionFinished(string(StageNotified), true)
	return result, nil
}

func (service *Service) submit(ctx context.Context, run *submission) (*Result, error) {
	// ── 1. Series ──
	found, err := service.registry.FindActiveSeries(ctx, run.request.SeriesName)
	if err != nil {
		return nil, service.fail(ctx, run, StageSeriesResolved, err)
	}
	run.series = found
	run.stage = StageSeriesResolved

	// ── 2. Validation ──
	urls := nonBlank(run.request.URLs)
	if len(urls) == 0 {
		return nil, service.fail(ctx, run, StageNumbered, apperr.EmptyContentSet())
	}

	validator := &validate.Validator{}
	validator.Required(FieldTitle, run.request.Title).MaxLen(FieldTitle, run.request.Title, MaxTitleLength)
	validator.ContentRefs(FieldURLs, urls)
	if err := validator.Err(); err != nil {
		return nil, service.fail(ctx, run, StageNumbered, err)
	}

	// ── 3. Lock & schedule ──
	run.reportable = true
	release, err := service.locker.Acquire(ctx, found.Name)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			err = apperr.SeriesBusy(err)
		}
		return nil, service.fail(ctx, run, StageNumbered, err)
	}
	defer service.release(ctx, run, release)

	current, err := service.schedules.Load(ctx, found.ID)
	if err != nil {
		return nil, service.fail(ctx, run, StageNumbered, apperr.ScheduleUnavailable(err))
	}

	// ── 4. Replay ──
	if previous := current.FindBySourceRef(run.sourceRef); previous != nil {
		return service.replay(ctx, run, release, previous)
	}

	// ── 5. Numbering ──
	date := service.now().In(service.location)
	input := numbering.Input{
		CurrentSerial:       current.CurrentSerial,
		VolumeStartYear:     current.VolumeStartYear,
		VolumeDurationYears: current.VolumeDurationYears,
		CurrentYear:         date.Year(),
		Policy:              found.Config.Numbering.Policy,
	}
	if last := current.Last(); last != nil {
		input.LastVolume, input.LastNumber = last.Volume, last.Number
	}
	position, err := numbering.Next(input)
	if err != nil {
		return nil, service.fail(ctx, run, StageNumbered, apperr.Internal(err))
	}
	run.stage = StageNumbered
	run.logger = run.logger.With(slog.Int("serial", position.Serial))

	// ── 6. Artifact ──
	in := artifactInput(found, run.request.Title, position, current.VolumeDurationYears, date, urls)
	built, err := service.renderer.Build(in)
	if err != nil {
		return nil, service.fail(ctx, run, StageArtifactBuilt, apperr.ArtifactBuildFailed(err))
	}
	run.stage = StageArtifactBuilt

	issue := schedule.Issue{
		Date:      date.Format(schedule.DateLayout),
		Serial:    position.Serial,
		Volume:    position.Volume,
		Number:    position.Number,
		Status:    schedule.StatusPublished,
		Filename:  built.Filename,
		Title:     run.request.Title,
		SourceRef: run.sourceRef,
	}

	// ── 7. Branch & commit ──
	base := constants.MainBranch
	if last := current.Last(); last != nil && last.CommitRef != "" {
		base = last.CommitRef
	}
	branch := BranchName(position.Serial, run.id)

	commitRef, err := service.commit(ctx, found, branch, base, *current, issue, in, built)
	if err != nil {
		return nil, service.fail(ctx, run, StageCommitted, apperr.CommitFailed(err))
	}
	issue.CommitRef = commitRef
	run.stage = StageCommitted
	run.logger.InfoContext(ctx, "submission_committed",
		slog.String("branch", branch),
		slog.String("commit_ref", commitRef),
	)

	// ── 8. Schedule ──
	if err := service.schedules.Append(ctx, found.ID, current.CurrentSerial, issue); err != nil {
		service.deleteBranch(ctx, run, branch)
		return nil, service.fail(ctx, run, StageScheduleUpdated, apperr.CommitFailed(err))
	}
	run.stage = StageScheduleUpdated
	service.metrics.SerialIssued()

	// ── 9. Merge request ──
	return service.publish(ctx, run, release, issue, branch)
}

// replay finishes or returns an issue already numbered under the same source ref.
func (service *Service) replay(ctx context.Context, run *submission, release lock.Release, previous *schedule.Issue) (*Result, error) {
	run.stage = StageScheduleUpdated
	run.logger = run.logger.With(slog.Int("serial", previous.Serial))
	run.logger.InfoContext(ctx, "submission_replayed",
		slog.String("source_ref", previous.SourceRef),
		slog.Bool("merge_request_missing", previous.MergeRequestURL == ""),
	)

	if previous.MergeRequestURL != "" {
		result := service.result(run, *previous)
		result.Replayed = true
		return result, nil
	}

	// The issue is in the schedule but its merge request never opened.
	branch := BranchName(previous.Serial, run.id)
	if err := service.host.CreateBranch(ctx, run.series.RepoRef, branch, previous.CommitRef); err != nil {
		return nil, service.fail(ctx, run, StagePublishRequested, apperr.PublishRequestFailed(err))
	}

	result, err := service.publish(ctx, run, release, *previous, branch)
	if result != nil {
		result.Replayed = true
	}
	return result, err
}

// commit writes the artifact, manifest and schedule to a new branch.
func (service *Service) commit(
	ctx context.Context,
	target *series.Series,
	branch, base string,
	current schedule.Schedule,
	issue schedule.Issue,
	in artifact.Input,
	built *artifact.Artifact,
) (string, error) {
	if err := service.host.CreateBranch(ctx, target.RepoRef, branch, base); err != nil {
		return "", fmt.Errorf("create branch: %w", err)
	}

	manifestPath := artifact.ManifestPath(in.Date)
	existing, err := service.host.ReadFile(ctx, target.RepoRef, base, manifestPath)
	if err != nil && !errors.Is(err, repohost.ErrNotFound) {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	manifest, err := artifact.MergeManifest(existing, in, built.ResolvedRefs)
	if err != nil {
		return "", err
	}

	document, err := current.With(issue).EncodeDocument()
	if err != nil {
		return "", fmt.Errorf("encode schedule: %w", err)
	}

	commitRef, err := service.host.CommitFiles(ctx, target.RepoRef, branch,
		fmt.Sprintf("%s: %s", numbering.Label(issue.Serial), issue.Title),
		[]repohost.File{
			{Path: ArtifactPath(issue.Serial), Content: built.PDF},
			{Path: manifestPath, Content: manifest},
			{Path: constants.PathSchedule, Content: document},
		})
	if err != nil {
		return "", fmt.Errorf("commit files: %w", err)
	}
	return commitRef, nil
}

// publish opens the merge request of issue, then releases the lock and reports.
func (service *Service) publish(ctx context.Context, run *submission, release lock.Release, issue schedule.Issue, branch string) (*Result, error) {
	target := run.series

	merge, err := service.host.OpenMergeRequest(ctx, target.RepoRef, branch, constants.MainBranch,
		fmt.Sprintf("%s: %s", numbering.Label(issue.Serial), issue.Title),
		artifact.IssueLine(issue.Volume, issue.Number, issue.Serial))
	if err != nil {
		return nil, service.fail(ctx, run, StagePublishRequested, apperr.PublishRequestFailed(err))
	}
	issue.MergeRequestURL = merge.URL
	run.stage = StagePublishRequested

	if err := service.schedules.SetMergeRequest(ctx, target.ID, issue.Serial, merge.URL); err != nil {
		run.logger.WarnContext(ctx, "submission_merge_request_unrecorded",
			slog.String("merge_request_url", merge.URL),
			slog.Any("error", err),
		)
	}

	// ── 10. Release, count, notify ──
	service.release(ctx, run, release)

	if err := service.registry.UpdateIssueCount(ctx, target.Name, issue.Serial); err != nil {
		run.logger.WarnContext(ctx, "series_issue_count_failed", slog.Any("error", err))
	}

	result := service.result(run, issue)
	service.notify(ctx, run, notify.EventSubmissionPublished, notify.SubmissionPublished{
		Series:          target.Name,
		Title:           issue.Title,
		Label:           numbering.Label(issue.Serial),
		ArtifactPath:    result.ArtifactPath,
		RepoRef:         target.RepoRef,
		MergeRequestURL: merge.URL,
		PublicURL:       result.PublicURL,
	})
	run.stage = StageNotified

	run.logger.InfoContext(ctx, "submission_published",
		slog.String("merge_request_url", merge.URL),
		slog.Bool("merged", merge.Merged),
	)
	return result, nil
}

func (service *Service) result(run *submission, issue schedule.Issue) *Result {
	result := &Result{
		SubmissionID:    run.id,
		Serial:          issue.Serial,
		Volume:          issue.Volume,
		Number:          issue.Number,
		Filename:        issue.Filename,
		ArtifactPath:    ArtifactPath(issue.Serial),
		MergeRequestURL: issue.MergeRequestURL,
	}
	if run.series.PublicURL != "" {
		result.PublicURL = strings.TrimSuffix(run.series.PublicURL, "/") + "/" + result.ArtifactPath
	}
	return result
}

// fail wraps err with the stage it prevented and, once caller input was
// accepted, reports it to the operator.
func (service *Service) fail(ctx context.Context, run *submission, stage Stage, err error) error {
	run.logger.WarnContext(ctx, "submission_failed",
		slog.String("stage", string(stage)),
		slog.String("reached", string(run.stage)),
		slog.Any("error", err),
	)
	run.stage = StageFailed

	if run.reportable {
		service.notify(ctx, run, notify.EventSubmissionFailed, notify.SubmissionFailed{
			Series:       run.request.SeriesName,
			Title:        run.request.Title,
			Stage:        string(stage),
			SubmissionID: run.id,
			Error:        failureText(err),
		})
	}
	return &StageError{Stage: stage, Err: err}
}

// deleteBranch undoes a commit whose schedule append was rejected.
func (service *Service) deleteBranch(ctx context.Context, run *submission, branch string) {
	if err := service.host.DeleteBranch(context.WithoutCancel(ctx), run.series.RepoRef, branch); err != nil {
		run.logger.ErrorContext(ctx, "submission_branch_orphaned",
			slog.String("branch", branch),
			slog.Any("error", err),
		)
	}
}

func (service *Service) release(ctx context.Context, run *submission, release lock.Release) {
	if err := release(context.WithoutCancel(ctx)); err != nil {
		run.logger.WarnContext(ctx, "series_lock_release_failed", slog.Any("error", err))
	}
}

// notify sends an operator message; delivery failures are only logged.
func (service *Service) notify(ctx context.Context, run *submission, event string, data any) {
	message, err := notify.Render(event, data)
	if err == nil {
		err = service.notifier.Send(context.WithoutCancel(ctx), message)
	}
	if err != nil {
		run.logger.WarnContext(ctx, "operator_notification_failed",
			slog.String("event", event),
			slog.Any("error", err),
		)
	}
}

func artifactInput(target *series.Series, title string, position numbering.Result, durationYears int, date time.Time, urls []string) artifact.Input {
	config := target.Config
	return artifact.Input{
		SeriesName:          target.Name,
		Title:               title,
		Serial:              position.Serial,
		Volume:              position.Volume,
		Number:              position.Number,
		VolumeDurationYears: durationYears,
		Date:                date,
		ContentRefs:         urls,
		Profile: artifact.Profile{
			PublicationName:   config.Branding.PublicationName,
			Publisher:         config.Colophon.Publisher,
			PublisherAddress:  config.Colophon.PublisherAddress,
			ContentOriginator: config.Colophon.ContentOriginator,
			LegalBasis:        config.Colophon.LegalBasis,
			Note:              config.Colophon.Note,
			AccentColor:       config.Branding.AccentColor,
		},
	}
}

func nonBlank(values []string) []string {
	kept := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

// failureText keeps the cause of an [apperr.AppError] for the operator.
func failureText(err error) string {
	if appError := apperr.As(err); appError != nil && appError.Cause != nil {
		return appError.Message + ": " + appError.Cause.Error()
	}
	return err.Error()
}
