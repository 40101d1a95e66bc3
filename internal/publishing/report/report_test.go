// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/report"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

var tokyo = time.FixedZone("JST", 9*60*60)

type failingLister struct{}

func (failingLister) ListActive(context.Context) ([]*series.Series, error) {
	return nil, errors.New("database down")
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seed opens Acme with three issues and Bravo without a schedule.
func seed(t *testing.T) (*series.MemoryStore, *schedule.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	registry := series.NewMemoryStore()
	schedules := schedule.NewMemoryStore()

	require.NoError(t, registry.Create(ctx, &series.Series{ID: "s-acme", Name: "Acme", ClientID: "acme-1", Status: series.StatusActive}))
	require.NoError(t, registry.Create(ctx, &series.Series{ID: "s-bravo", Name: "Bravo", ClientID: "bravo-1", Status: series.StatusActive}))

	require.NoError(t, schedules.Init(ctx, schedule.Schedule{SeriesID: "s-acme", VolumeStartYear: 2026, VolumeDurationYears: 20}))
	for serial, date := range []string{"2026-03-31", "2026-04-01", "2026-04-30"} {
		require.NoError(t, schedules.Append(ctx, "s-acme", serial, schedule.Issue{
			Date:      date,
			Serial:    serial + 1,
			Volume:    1,
			Number:    serial + 1,
			Status:    schedule.StatusPublished,
			SourceRef: date,
		}))
	}
	return registry, schedules
}

func TestService_Monthly(t *testing.T) {
	registry, schedules := seed(t)
	service := report.NewService(registry, schedules, tokyo, discard())

	april, err := service.ParseMonth("2026-04")
	require.NoError(t, err)

	monthly, err := service.Monthly(context.Background(), april)
	require.NoError(t, err)

	assert.Equal(t, "2026-04", monthly.Month)
	assert.Equal(t, []report.Line{{Series: "Acme", ClientID: "acme-1", Published: 2, RunningTotal: 3}}, monthly.Lines)
	require.Len(t, monthly.Skipped, 1)
	assert.Equal(t, "Bravo", monthly.Skipped[0].Series)
	assert.Equal(t, 2, monthly.Published)
	assert.Equal(t, "2026年04月", monthly.Label())
}

func TestService_ParseMonth_Invalid(t *testing.T) {
	service := report.NewService(series.NewMemoryStore(), schedule.NewMemoryStore(), tokyo, discard())

	for _, value := range []string{"2026-13", "April", "2026/04", ""} {
		_, err := service.ParseMonth(value)
		assert.Error(t, err, value)
	}
}

func TestService_PreviousMonth(t *testing.T) {
	service := report.NewService(series.NewMemoryStore(), schedule.NewMemoryStore(), tokyo, discard())

	// 2026-01-01 00:30 JST is still December 31 in UTC.
	now := time.Date(2025, time.December, 31, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.December, 1, 0, 0, 0, 0, tokyo), service.PreviousMonth(now))
}

func TestJob_MailsPreviousMonth(t *testing.T) {
	registry, schedules := seed(t)
	notifier := notify.NewMemoryNotifier()
	service := report.NewService(registry, schedules, tokyo, discard())
	job := report.NewJob(service, notifier, discard())
	report.SetClock(job, func() time.Time { return time.Date(2026, time.May, 1, 9, 0, 0, 0, tokyo) })

	require.NoError(t, job.Run(context.Background()))

	messages := notifier.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, notify.EventReportMonthly, messages[0].Event)
	assert.Equal(t, "[kanko] 月次レポート 2026年04月", messages[0].Subject)
	assert.Contains(t, messages[0].Body, "━━━ Acme (acme-1) ━━━")
	assert.Contains(t, messages[0].Body, "発行数: 2")
	assert.Contains(t, messages[0].Body, "通巻: 3")
	assert.Contains(t, messages[0].Body, "  - Bravo: ")
	assert.Contains(t, messages[0].Body, "合計発行数: 2")
}

func TestJob_FailureNotifiesOperator(t *testing.T) {
	notifier := notify.NewMemoryNotifier()
	service := report.NewService(failingLister{}, schedule.NewMemoryStore(), tokyo, discard())
	job := report.NewJob(service, notifier, discard())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{notify.EventReportFailed}, notifier.Events())
	assert.Contains(t, notifier.Messages()[0].Body, "database down")
}

func TestHandler_GetMonthly(t *testing.T) {
	registry, schedules := seed(t)
	router := chi.NewRouter()
	report.NewHandler(report.NewService(registry, schedules, tokyo, discard())).RegisterRoutes(router)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/monthly?month=2026-04", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Data report.Monthly `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Published)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/monthly?month=nope", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
