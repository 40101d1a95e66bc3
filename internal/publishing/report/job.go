// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/taibuivan/kanko/internal/publishing/notify"
)

var mailTemplate = template.Must(template.New("monthly").Parse(
	`【Kanko 月次レポート】
{{.Label}}

{{range .Lines}}━━━ {{.Series}} ({{.ClientID}}) ━━━
  発行数: {{.Published}}
  通巻: {{.RunningTotal}}

{{end}}{{if .Skipped}}読み込めなかったシリーズ:
{{range .Skipped}}  - {{.Series}}: {{.Reason}}
{{end}}
{{end}}合計発行数: {{.Published}}
`))

// Mail renders report as the operator's monthly message.
func Mail(report *Monthly) (notify.Message, error) {
	var body bytes.Buffer
	if err := mailTemplate.Execute(&body, report); err != nil {
		return notify.Message{}, fmt.Errorf("report: render mail: %w", err)
	}
	return notify.Message{
		Event:   notify.EventReportMonthly,
		Subject: "[kanko] 月次レポート " + report.Label(),
		Body:    body.String(),
	}, nil
}

// Job mails the previous month's report on each run.
type Job struct {
	service  *Service
	notifier notify.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewJob constructs a new [Job].
func NewJob(service *Service, notifier notify.Notifier, logger *slog.Logger) *Job {
	return &Job{service: service, notifier: notifier, logger: logger, now: time.Now}
}

// Name implements scheduler.Job.
func (job *Job) Name() string { return "monthly_report" }

// Run implements scheduler.Job. A failure is also sent to the operator.
func (job *Job) Run(ctx context.Context) error {
	month := job.service.PreviousMonth(job.now())

	err := job.run(ctx, month)
	if err != nil {
		message, renderErr := notify.Render(notify.EventReportFailed, notify.ReportFailed{
			Month: month.Format(MonthLayout),
			Error: err.Error(),
		})
		if renderErr == nil {
			renderErr = job.notifier.Send(ctx, message)
		}
		if renderErr != nil {
			job.logger.WarnContext(ctx, "operator_notification_failed",
				slog.String("event", notify.EventReportFailed),
				slog.Any("error", renderErr),
			)
		}
	}
	return err
}

func (job *Job) run(ctx context.Context, month time.Time) error {
	report, err := job.service.Monthly(ctx, month)
	if err != nil {
		return err
	}

	message, err := Mail(report)
	if err != nil {
		return err
	}
	if err := job.notifier.Send(ctx, message); err != nil {
		return fmt.Errorf("report: send: %w", err)
	}

	job.logger.InfoContext(ctx, "report_monthly_sent",
		slog.String("month", report.Month),
		slog.Int("series", len(report.Lines)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("published", report.Published),
	)
	return nil
}
