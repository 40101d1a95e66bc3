// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package report summarises publication activity per calendar month.

A report is a pure read: for every active series it counts the published
issues dated within the month and carries the schedule's CurrentSerial as
the running total. Series whose schedule cannot be read are listed in
Skipped instead of failing the whole report.
*/
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// MonthLayout is the format of a report month (2026-04).
const MonthLayout = "2006-01"

// Lister returns the series a report covers.
type Lister interface {
	ListActive(ctx context.Context) ([]*series.Series, error)
}

// Line is the activity of one series.
type Line struct {
	Series       string `json:"series"`
	ClientID     string `json:"client_id"`
	Published    int    `json:"published"`
	RunningTotal int    `json:"running_total"`
}

// Skip names a series left out of the report.
type Skip struct {
	Series string `json:"series"`
	Reason string `json:"reason"`
}

// Monthly is the report of one calendar month.
type Monthly struct {
	Month     string `json:"month"`
	Lines     []Line `json:"lines"`
	Skipped   []Skip `json:"skipped"`
	Published int    `json:"published"`
}

// Service builds reports.
type Service struct {
	lister    Lister
	schedules schedule.Store
	location  *time.Location
	logger    *slog.Logger
}

// NewService constructs a new [Service]. Months are taken in location.
func NewService(lister Lister, schedules schedule.Store, location *time.Location, logger *slog.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{lister: lister, schedules: schedules, location: location, logger: logger}
}

// ParseMonth parses a YYYY-MM month in the service's zone.
func (service *Service) ParseMonth(value string) (time.Time, error) {
	month, err := time.ParseInLocation(MonthLayout, value, service.location)
	if err != nil {
		return time.Time{}, apperr.ValidationError("Invalid month", apperr.FieldError{
			Field:   "month",
			Message: "Must be in YYYY-MM format",
		})
	}
	return month, nil
}

// PreviousMonth returns the first instant of the month before now.
func (service *Service) PreviousMonth(now time.Time) time.Time {
	local := now.In(service.location)
	return time.Date(local.Year(), local.Month()-1, 1, 0, 0, 0, 0, service.location)
}

/*
Monthly reports the activity of every active series in month.

Parameters:
  - ctx: context.Context
  - month: time.Time (Any instant inside the month)

Returns:
  - *Monthly: One line per readable series
  - error: Only when the series list itself cannot be read
*/
func (service *Service) Monthly(ctx context.Context, month time.Time) (*Monthly, error) {
	local := month.In(service.location)
	from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, service.location)
	to := from.AddDate(0, 1, 0)

	active, err := service.lister.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	report := &Monthly{
		Month:   from.Format(MonthLayout),
		Lines:   []Line{},
		Skipped: []Skip{},
	}

	for _, item := range active {
		loaded, err := service.schedules.Load(ctx, item.ID)
		if err != nil {
			service.logger.WarnContext(ctx, "report_series_skipped",
				slog.String("series", item.Name),
				slog.Any("error", err),
			)
			report.Skipped = append(report.Skipped, Skip{Series: item.Name, Reason: err.Error()})
			continue
		}

		line := Line{
			Series:       item.Name,
			ClientID:     item.ClientID,
			Published:    loaded.PublishedIn(from, to),
			RunningTotal: loaded.CurrentSerial,
		}
		report.Lines = append(report.Lines, line)
		report.Published += line.Published
	}

	return report, nil
}

// Label formats the month as YYYY年MM月.
func (m *Monthly) Label() string {
	month, err := time.Parse(MonthLayout, m.Month)
	if err != nil {
		return m.Month
	}
	return fmt.Sprintf("%d年%02d月", month.Year(), int(month.Month()))
}
