// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"fmt"
	"strings"
	"text/template"
)

// Event names.
const (
	EventSubmissionPublished  = "submission_published"
	EventSubmissionFailed     = "submission_failed"
	EventSeriesProvisioned    = "series_provisioned"
	EventProvisioningDegraded = "provisioning_degraded"
	EventProvisioningFailed   = "provisioning_failed"
	EventRepositoryOrphaned   = "series_repository_orphaned"
	EventReportMonthly        = "report_monthly"
	EventReportFailed         = "report_failed"
)

// SubmissionPublished is the data of [EventSubmissionPublished].
type SubmissionPublished struct {
	Series          string
	Title           string
	Label           string
	ArtifactPath    string
	RepoRef         string
	MergeRequestURL string
	PublicURL       string
}

// SubmissionFailed is the data of [EventSubmissionFailed].
type SubmissionFailed struct {
	Series       string
	Title        string
	Stage        string
	SubmissionID string
	Error        string
}

// SeriesProvisioned is the data of [EventSeriesProvisioned].
type SeriesProvisioned struct {
	Series    string
	RepoRef   string
	PublicURL string
}

// ProvisioningDegraded is the data of [EventProvisioningDegraded].
type ProvisioningDegraded struct {
	Series  string
	RepoRef string
	Step    string
	Error   string
}

// ProvisioningFailed is the data of [EventProvisioningFailed].
type ProvisioningFailed struct {
	Series string
	Step   string
	Error  string
}

// RepositoryOrphaned is the data of [EventRepositoryOrphaned].
type RepositoryOrphaned struct {
	Series        string
	RepoRef       string
	ActiveRepoRef string
}

// ReportFailed is the data of [EventReportFailed].
type ReportFailed struct {
	Month string
	Error string
}

var templates = template.Must(template.New("notify").Parse(`
{{define "submission_published.subject"}}[kanko] {{.Series}} {{.Label}} published{{end}}
{{define "submission_published.body"}}Series:        {{.Series}}
Title:         {{.Title}}
Serial:        {{.Label}}
Artifact:      {{.RepoRef}}/{{.ArtifactPath}}
Merge request: {{.MergeRequestURL}}
{{with .PublicURL}}Archive:       {{.}}
{{end}}{{end}}

{{define "submission_failed.subject"}}[kanko] submission for {{.Series}} failed at {{.Stage}}{{end}}
{{define "submission_failed.body"}}Series:     {{.Series}}
Title:      {{.Title}}
Stage:      {{.Stage}}
Submission: {{.SubmissionID}}
Error:      {{.Error}}
{{end}}

{{define "series_provisioned.subject"}}[kanko] series {{.Series}} opened{{end}}
{{define "series_provisioned.body"}}Series:     {{.Series}}
Repository: {{.RepoRef}}
Archive:    {{.PublicURL}}
{{end}}

{{define "provisioning_degraded.subject"}}[kanko] series {{.Series}} needs attention: {{.Step}}{{end}}
{{define "provisioning_degraded.body"}}The series is active but the step "{{.Step}}" did not complete.

Series:     {{.Series}}
Repository: {{.RepoRef}}
Error:      {{.Error}}
{{end}}

{{define "provisioning_failed.subject"}}[kanko] series {{.Series}} could not be opened{{end}}
{{define "provisioning_failed.body"}}Series: {{.Series}}
Step:   {{.Step}}
Error:  {{.Error}}
{{end}}

{{define "series_repository_orphaned.subject"}}[kanko] unused repository left for {{.Series}}{{end}}
{{define "series_repository_orphaned.body"}}Another open of the series was recorded first. The repository below
was provisioned but is not attached to any series and can be removed.

Series:      {{.Series}}
Repository:  {{.RepoRef}}
Active repo: {{.ActiveRepoRef}}
{{end}}

{{define "report_failed.subject"}}[kanko] monthly report for {{.Month}} failed{{end}}
{{define "report_failed.body"}}Month: {{.Month}}
Error: {{.Error}}
{{end}}
`))

// Render builds the message of event from data.
func Render(event string, data any) (Message, error) {
	subject, err := execute(event+".subject", data)
	if err != nil {
		return Message{}, err
	}
	body, err := execute(event+".body", data)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, Subject: subject, Body: body}, nil
}

func execute(name string, data any) (string, error) {
	var out strings.Builder
	if err := templates.ExecuteTemplate(&out, name, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", name, err)
	}
	return out.String(), nil
}
