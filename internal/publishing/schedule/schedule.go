// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package schedule holds the ordered, append-only log of issues of each series.

The Postgres (or in-memory) store is authoritative. Every submission also
commits a [Document] rendering of the schedule as schedule.json in the
series repository, where the public archive page reads it.

Invariants:

  - Issues are never removed or reordered; serials are 1..CurrentSerial.
  - [Store.Append] is a compare-and-swap on CurrentSerial.
*/
package schedule

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by [Store.Load] when a series has no schedule row.
	ErrNotFound = errors.New("schedule: not found")

	// ErrSerialConflict is returned by [Store.Append] when the schedule moved
	// past the expected serial, or the issue's serial or source ref is taken.
	ErrSerialConflict = errors.New("schedule: serial conflict")
)

// DateLayout is the calendar date format of [Issue.Date].
const DateLayout = time.DateOnly

// # Domain Enums

// Status is the lifecycle state of an issue.
type Status string

const (
	StatusDrafting  Status = "drafting"
	StatusPublished Status = "published"
)

// # Core Entities

// Issue is one numbered publication of a series.
type Issue struct {
	Date      string `json:"date"`
	Serial    int    `json:"serial"`
	Volume    int    `json:"volume"`
	Number    int    `json:"number"`
	Status    Status `json:"status"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	SourceRef string `json:"source_ref"`

	// CommitRef and MergeRequestURL let a retried submission resume.
	CommitRef       string `json:"commit_ref,omitempty"`
	MergeRequestURL string `json:"merge_request_url,omitempty"`
}

// Schedule is the numbering state of one series.
type Schedule struct {
	SeriesID            string  `json:"series_id"`
	CadenceMonths       *int    `json:"cadence_months"`
	VolumeStartYear     int     `json:"volume_start_year"`
	VolumeDurationYears int     `json:"volume_duration_years"`
	CurrentSerial       int     `json:"current_serial"`
	Issues              []Issue `json:"issues"`
}

// Last returns the most recent issue, or nil for an empty schedule.
func (s *Schedule) Last() *Issue {
	if len(s.Issues) == 0 {
		return nil
	}
	return &s.Issues[len(s.Issues)-1]
}

// FindBySourceRef returns the issue submitted under ref, or nil.
func (s *Schedule) FindBySourceRef(ref string) *Issue {
	for i := range s.Issues {
		if s.Issues[i].SourceRef == ref {
			return &s.Issues[i]
		}
	}
	return nil
}

// PublishedIn counts published issues dated within [from, to).
func (s *Schedule) PublishedIn(from, to time.Time) int {
	count := 0
	for _, issue := range s.Issues {
		if issue.Status != StatusPublished {
			continue
		}
		date, err := time.ParseInLocation(DateLayout, issue.Date, from.Location())
		if err != nil {
			continue
		}
		if !date.Before(from) && date.Before(to) {
			count++
		}
	}
	return count
}

// With returns a copy of s with issue appended and CurrentSerial advanced.
func (s Schedule) With(issue Issue) Schedule {
	issues := make([]Issue, len(s.Issues), len(s.Issues)+1)
	copy(issues, s.Issues)
	s.Issues = append(issues, issue)
	s.CurrentSerial = issue.Serial
	return s
}

// # Repository Mirror

// Document is the schedule.json shape committed to the series repository.
type Document struct {
	CadenceMonths       *int            `json:"cadence_months"`
	VolumeStartYear     int             `json:"volume_start_year"`
	VolumeDurationYears int             `json:"volume_duration_years"`
	CurrentSerial       int             `json:"current_serial"`
	Issues              []DocumentIssue `json:"issues"`
}

// DocumentIssue is one entry of [Document.Issues].
type DocumentIssue struct {
	Date      string `json:"date"`
	Serial    int    `json:"serial"`
	Volume    int    `json:"volume"`
	Number    int    `json:"number"`
	Status    Status `json:"status"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	SourceRef string `json:"source_ref"`
}

// Document converts s to its repository shape.
func (s Schedule) Document() Document {
	issues := make([]DocumentIssue, 0, len(s.Issues))
	for _, issue := range s.Issues {
		issues = append(issues, DocumentIssue{
			Date:      issue.Date,
			Serial:    issue.Serial,
			Volume:    issue.Volume,
			Number:    issue.Number,
			Status:    issue.Status,
			Filename:  issue.Filename,
			Title:     issue.Title,
			SourceRef: issue.SourceRef,
		})
	}

	return Document{
		CadenceMonths:       s.CadenceMonths,
		VolumeStartYear:     s.VolumeStartYear,
		VolumeDurationYears: s.VolumeDurationYears,
		CurrentSerial:       s.CurrentSerial,
		Issues:              issues,
	}
}

// EncodeDocument renders the schedule.json bytes, two-space indented with a
// trailing newline.
func (s Schedule) EncodeDocument() ([]byte, error) {
	data, err := json.MarshalIndent(s.Document(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeDocument parses schedule.json bytes.
func DecodeDocument(data []byte) (Document, error) {
	var document Document
	if err := json.Unmarshal(data, &document); err != nil {
		return Document{}, err
	}
	if document.Issues == nil {
		document.Issues = []DocumentIssue{}
	}
	return document, nil
}
