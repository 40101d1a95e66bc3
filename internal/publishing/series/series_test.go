// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/lock"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/numbering"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

type fakeProvisioner struct {
	calls    atomic.Int32
	fail     error
	degraded bool
}

func (p *fakeProvisioner) Provision(_ context.Context, request series.ProvisionRequest) (series.ProvisionResult, error) {
	p.calls.Add(1)
	if p.fail != nil {
		return series.ProvisionResult{}, p.fail
	}
	// Widen the race window for concurrent opens.
	time.Sleep(5 * time.Millisecond)

	result := series.ProvisionResult{
		RepoRef:      "kanko/newsletter-client-" + request.ClientID,
		PublicURL:    "https://kanko.example/newsletter-client-" + request.ClientID + "/",
		HostingReady: !p.degraded,
	}
	if p.degraded {
		result.Warning = apperr.ProvisioningPartialFailure("enable_hosting", errors.New("pages disabled"))
	}
	return result, nil
}

// racingStore records a competing series just before every Create, as a
// second instance holding a lost lease would.
type racingStore struct {
	*series.MemoryStore
}

func (s racingStore) Create(ctx context.Context, created *series.Series) error {
	winner := *created
	winner.ID = "winner-" + created.ID
	winner.ClientID = "winner-client"
	winner.RepoRef = "kanko/newsletter-client-winner"
	if err := s.MemoryStore.Create(ctx, &winner); err != nil {
		return err
	}
	return s.MemoryStore.Create(ctx, created)
}

type fixture struct {
	service     *series.Service
	schedules   *schedule.MemoryStore
	provisioner *fakeProvisioner
	notifier    *notify.MemoryNotifier
}

func newFixture() fixture {
	return newFixtureWith(series.NewMemoryStore(), series.Defaults{VolumeStartYear: 2026, VolumeDurationYears: 20, CadenceMonths: 3})
}

func newFixtureWith(store series.Store, defaults series.Defaults) fixture {
	schedules := schedule.NewMemoryStore()
	provisioner := &fakeProvisioner{}
	notifier := notify.NewMemoryNotifier()
	service := series.NewService(
		store,
		schedules,
		provisioner,
		lock.NewMemoryLocker(),
		notifier,
		defaults,
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return fixture{service: service, schedules: schedules, provisioner: provisioner, notifier: notifier}
}

func TestService_OpenSeries_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.service.OpenSeries(ctx, "Acme", nil)
	require.NoError(t, err)
	assert.False(t, first.Existing)
	assert.Nil(t, first.Warning)
	assert.Equal(t, series.StatusActive, first.Series.Status)
	assert.Empty(t, first.Series.Note)
	assert.Regexp(t, regexp.MustCompile(`^acme-[0-9a-f]{10}$`), first.Series.ClientID)

	second, err := f.service.OpenSeries(ctx, "Acme", &series.ClientConfig{
		Branding: series.Branding{PublicationName: "Ignored"},
	})
	require.NoError(t, err)
	assert.True(t, second.Existing)
	assert.Equal(t, first.Series.ID, second.Series.ID)
	assert.Equal(t, first.Series.RepoRef, second.Series.RepoRef)
	assert.Equal(t, "Acme ニュースレター", second.Series.Config.Branding.PublicationName)
	assert.EqualValues(t, 1, f.provisioner.calls.Load())

	loaded, err := f.schedules.Load(ctx, first.Series.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.CurrentSerial)
	assert.Equal(t, 2026, loaded.VolumeStartYear)
	assert.Equal(t, 20, loaded.VolumeDurationYears)
	require.NotNil(t, loaded.CadenceMonths)
	assert.Equal(t, 3, *loaded.CadenceMonths)
}

func TestService_OpenSeries_Concurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const workers = 8
	var (
		wg  sync.WaitGroup
		ids sync.Map
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.service.OpenSeries(ctx, "Parallel Weekly", nil)
			if assert.NoError(t, err) {
				ids.Store(result.Series.ID, true)
			}
		}()
	}
	wg.Wait()

	count := 0
	ids.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, 1, count)
	assert.EqualValues(t, 1, f.provisioner.calls.Load())
}

func TestService_OpenSeries_HostingPending(t *testing.T) {
	f := newFixture()
	f.provisioner.degraded = true

	result, err := f.service.OpenSeries(context.Background(), "Degraded", nil)
	require.NoError(t, err)
	assert.Equal(t, series.NoteHostingPending, result.Series.Note)
	assert.True(t, apperr.HasCode(result.Warning, apperr.CodeProvisioningPartialFailure))

	found, err := f.service.FindActiveSeries(context.Background(), "Degraded")
	require.NoError(t, err)
	assert.Equal(t, series.StatusActive, found.Status)
}

func TestService_OpenSeries_ProvisioningFailure(t *testing.T) {
	f := newFixture()
	f.provisioner.fail = errors.New("repository quota exceeded")
	ctx := context.Background()

	_, err := f.service.OpenSeries(ctx, "Broken", nil)
	assert.True(t, apperr.HasCode(err, apperr.CodeProvisioningFailed))

	_, err = f.service.FindActiveSeries(ctx, "Broken")
	assert.True(t, apperr.HasCode(err, apperr.CodeSeriesNotFound))
}

func TestService_OpenSeries_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cadence := 0

	tests := []struct {
		name   string
		series string
		config *series.ClientConfig
	}{
		{name: "blank name", series: "   "},
		{name: "bad colour", series: "Colour", config: &series.ClientConfig{Branding: series.Branding{AccentColor: "blue"}}},
		{name: "zero cadence", series: "Cadence", config: &series.ClientConfig{Numbering: series.NumberingConfig{CadenceMonths: &cadence}}},
		{name: "unknown policy", series: "Policy", config: &series.ClientConfig{Numbering: series.NumberingConfig{Policy: "yearly"}}},
		{name: "start year ahead", series: "Future", config: &series.ClientConfig{Numbering: series.NumberingConfig{StartYear: 9999}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.OpenSeries(ctx, tt.series, tt.config)
			assert.True(t, apperr.HasCode(err, "VALIDATION_ERROR"), "got %v", err)
		})
	}
	assert.EqualValues(t, 0, f.provisioner.calls.Load())
}

func TestService_OpenSeries_StartYearUsesLocation(t *testing.T) {
	// 03:00 UTC on New Year's Day is still 2026 eight hours west.
	now := time.Date(2027, 1, 1, 3, 0, 0, 0, time.UTC)
	config := &series.ClientConfig{Numbering: series.NumberingConfig{StartYear: 2027}}

	west := newFixtureWith(series.NewMemoryStore(), series.Defaults{
		VolumeDurationYears: 20,
		Location:            time.FixedZone("PST", -8*60*60),
	})
	series.SetClock(west.service, func() time.Time { return now })

	_, err := west.service.OpenSeries(context.Background(), "Pacific", config)
	require.Error(t, err)
	appErr := apperr.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "config.schedule.startYear", appErr.Details[0].Field)
	assert.EqualValues(t, 0, west.provisioner.calls.Load())

	utc := newFixtureWith(series.NewMemoryStore(), series.Defaults{VolumeDurationYears: 20})
	series.SetClock(utc.service, func() time.Time { return now })

	opened, err := utc.service.OpenSeries(context.Background(), "Pacific", config)
	require.NoError(t, err)
	assert.Equal(t, 2027, opened.Series.Config.Numbering.StartYear)
}

func TestService_OpenSeries_LostRaceReportsOrphan(t *testing.T) {
	f := newFixtureWith(racingStore{MemoryStore: series.NewMemoryStore()},
		series.Defaults{VolumeStartYear: 2026, VolumeDurationYears: 20})

	result, err := f.service.OpenSeries(context.Background(), "Contested", nil)
	require.NoError(t, err)
	assert.True(t, result.Existing)
	assert.Equal(t, "kanko/newsletter-client-winner", result.Series.RepoRef)

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, notify.EventRepositoryOrphaned, messages[0].Event)
	assert.Contains(t, messages[0].Body, "kanko/newsletter-client-contested-")
	assert.Contains(t, messages[0].Body, "kanko/newsletter-client-winner")
}

func TestService_FindActiveSeries_CaseSensitive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.OpenSeries(ctx, "Acme", nil)
	require.NoError(t, err)

	_, err = f.service.FindActiveSeries(ctx, "acme")
	assert.True(t, apperr.HasCode(err, apperr.CodeSeriesNotFound))
}

func TestService_UpdateIssueCount_Monotonic(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.OpenSeries(ctx, "Counted", nil)
	require.NoError(t, err)

	require.NoError(t, f.service.UpdateIssueCount(ctx, "Counted", 3))
	require.NoError(t, f.service.UpdateIssueCount(ctx, "Counted", 2))

	found, err := f.service.FindActiveSeries(ctx, "Counted")
	require.NoError(t, err)
	assert.Equal(t, 3, found.IssueCount)

	err = f.service.UpdateIssueCount(ctx, "Missing", 1)
	assert.True(t, apperr.HasCode(err, apperr.CodeSeriesNotFound))
}

func TestService_Schedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Schedule(ctx, "Nobody")
	assert.True(t, apperr.HasCode(err, apperr.CodeSeriesNotFound))

	opened, err := f.service.OpenSeries(ctx, "Scheduled", nil)
	require.NoError(t, err)

	loaded, err := f.service.Schedule(ctx, "Scheduled")
	require.NoError(t, err)
	assert.Equal(t, opened.Series.ID, loaded.SeriesID)
}

func TestClientConfig_Resolve(t *testing.T) {
	defaults := series.Defaults{VolumeStartYear: 2026, VolumeDurationYears: 20, CadenceMonths: 3}

	resolved := series.ClientConfig{}.Resolve("Acme", defaults)
	assert.Equal(t, "Acme ニュースレター", resolved.Branding.PublicationName)
	assert.Equal(t, series.DefaultAccentColor, resolved.Branding.AccentColor)
	assert.Equal(t, series.DefaultPublisher, resolved.Colophon.Publisher)
	assert.Equal(t, "Acme", resolved.Colophon.ContentOriginator)
	assert.Equal(t, series.DefaultLegalBasis, resolved.Colophon.LegalBasis)
	assert.Equal(t, numbering.PolicySerial, resolved.Numbering.Policy)
	assert.Equal(t, 2026, resolved.Numbering.StartYear)

	cadence := 1
	custom := series.ClientConfig{
		Colophon:  series.Colophon{Publisher: "Acme Press"},
		Numbering: series.NumberingConfig{StartYear: 2030, CadenceMonths: &cadence, Policy: numbering.PolicyVolumeReset},
	}.Resolve("Acme", defaults)
	assert.Equal(t, "Acme Press", custom.Colophon.Publisher)
	assert.Equal(t, 2030, custom.Numbering.StartYear)
	assert.Equal(t, 1, *custom.Numbering.CadenceMonths)
	assert.Equal(t, numbering.PolicyVolumeReset, custom.Numbering.Policy)
}

func TestClientID(t *testing.T) {
	at := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, series.ClientID("Acme Times", at), series.ClientID("Acme Times", at))
	assert.NotEqual(t, series.ClientID("Acme Times", at), series.ClientID("Acme Times", at.Add(time.Nanosecond)))
	assert.Regexp(t, `^series-[0-9a-f]{10}$`, series.ClientID("時の記録", at))
	assert.Regexp(t, `^acme-times-[0-9a-f]{10}$`, series.ClientID("Acme Times", at))
}
