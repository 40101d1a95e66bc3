// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package series is the registry of publication series.

A series is a named, independently numbered publication with its own backing
repository. Name is the human key and is unique among active series; the
derived ClientID names the repository and never changes.
*/
package series

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/kanko/internal/platform/sec"
	"github.com/taibuivan/kanko/internal/platform/validate"
	"github.com/taibuivan/kanko/internal/publishing/numbering"
	"github.com/taibuivan/kanko/pkg/slug"
)

// # Domain Enums

// Status is the lifecycle state of a series.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// NoteHostingPending marks a series whose static hosting is not yet enabled.
const NoteHostingPending = "hosting_pending"

// Field names used in validation errors.
const (
	FieldName   = "seriesName"
	FieldConfig = "config"
)

// MaxNameLength bounds a series name in characters.
const MaxNameLength = 120

const (
	// DefaultPublisher is printed in the colophon when none is configured.
	DefaultPublisher = "TokiStorage（佐藤卓也）"
	// DefaultLegalBasis is the deposit statute cited in the colophon.
	DefaultLegalBasis = "国立国会図書館法 第25条・第25条の4"
	// DefaultAccentColor is the cover bar colour.
	DefaultAccentColor = "#2B4C7E"
)

// # Core Entities

// Series is one publication and its backing repository.
type Series struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	ClientID   string       `json:"client_id"`
	RepoRef    string       `json:"repo_ref"`
	PublicURL  string       `json:"public_url"`
	Status     Status       `json:"status"`
	Config     ClientConfig `json:"config"`
	Note       string       `json:"note,omitempty"`
	IssueCount int          `json:"issue_count"`
	CreatedAt  time.Time    `json:"created_at"`
}

// ClientConfig is the per-series publication profile. It is fixed when the
// series opens and committed to the repository as client-config.json.
type ClientConfig struct {
	Branding  Branding        `json:"branding"`
	Colophon  Colophon        `json:"colophon"`
	Numbering NumberingConfig `json:"schedule"`
	Billing   *Billing        `json:"billing,omitempty"`
}

// Branding controls the artifact cover.
type Branding struct {
	PublicationName string `json:"publicationNameJa,omitempty"`
	AccentColor     string `json:"accentColor,omitempty"`
}

// Colophon holds the rows printed in the artifact's publication record.
type Colophon struct {
	Publisher         string `json:"publisher,omitempty"`
	PublisherAddress  string `json:"publisherAddress,omitempty"`
	ContentOriginator string `json:"contentOriginator,omitempty"`
	LegalBasis        string `json:"legalBasis,omitempty"`
	Note              string `json:"note,omitempty"`
}

// NumberingConfig seeds the series schedule.
type NumberingConfig struct {
	StartYear           int              `json:"startYear,omitempty"`
	VolumeDurationYears int              `json:"volumeDurationYears,omitempty"`
	CadenceMonths       *int             `json:"cadenceMonths,omitempty"`
	Policy              numbering.Policy `json:"numberPolicy,omitempty"`
}

// Billing is carried for the storefront; the service only stores it.
type Billing struct {
	Model           string `json:"model,omitempty"`
	PricePerIssue   int    `json:"pricePerIssue,omitempty"`
	IncludedQRSlots int    `json:"includedQrSlots,omitempty"`
	ExtraQRPrice    int    `json:"extraQrPrice,omitempty"`
}

// Defaults fills numbering fields a caller left out.
type Defaults struct {
	VolumeStartYear     int
	VolumeDurationYears int
	CadenceMonths       int

	// Location is the calendar issues are dated in. Nil means UTC.
	Location *time.Location
}

func (d Defaults) location() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

// Resolve returns a copy of c with every empty field filled for series name.
func (c ClientConfig) Resolve(name string, defaults Defaults) ClientConfig {
	if c.Branding.PublicationName == "" {
		c.Branding.PublicationName = name + " ニュースレター"
	}
	if c.Branding.AccentColor == "" {
		c.Branding.AccentColor = DefaultAccentColor
	}
	if c.Colophon.Publisher == "" {
		c.Colophon.Publisher = DefaultPublisher
	}
	if c.Colophon.ContentOriginator == "" {
		c.Colophon.ContentOriginator = name
	}
	if c.Colophon.LegalBasis == "" {
		c.Colophon.LegalBasis = DefaultLegalBasis
	}
	if c.Numbering.StartYear == 0 {
		c.Numbering.StartYear = defaults.VolumeStartYear
	}
	if c.Numbering.VolumeDurationYears == 0 {
		c.Numbering.VolumeDurationYears = defaults.VolumeDurationYears
	}
	if c.Numbering.CadenceMonths == nil && defaults.CadenceMonths > 0 {
		cadence := defaults.CadenceMonths
		c.Numbering.CadenceMonths = &cadence
	}
	if c.Numbering.Policy == "" {
		c.Numbering.Policy = numbering.PolicySerial
	}
	return c
}

// check adds the config's field errors to validator.
func (c ClientConfig) check(validator *validate.Validator) {
	validator.MaxLen("config.branding.publicationNameJa", c.Branding.PublicationName, 200)
	validator.HexColor("config.branding.accentColor", c.Branding.AccentColor)
	validator.MaxLen("config.colophon.publisher", c.Colophon.Publisher, 200)
	validator.MaxLen("config.colophon.publisherAddress", c.Colophon.PublisherAddress, 300)
	validator.MaxLen("config.colophon.contentOriginator", c.Colophon.ContentOriginator, 200)
	validator.MaxLen("config.colophon.legalBasis", c.Colophon.LegalBasis, 200)
	validator.MaxLen("config.colophon.note", c.Colophon.Note, 1000)

	if c.Numbering.StartYear != 0 {
		validator.Range("config.schedule.startYear", c.Numbering.StartYear, 1900, 9999)
	}
	validator.Custom("config.schedule.volumeDurationYears", c.Numbering.VolumeDurationYears < 0, "Must be positive")
	if c.Numbering.CadenceMonths != nil {
		validator.Range("config.schedule.cadenceMonths", *c.Numbering.CadenceMonths, 1, 120)
	}
	validator.Custom("config.schedule.numberPolicy", !c.Numbering.Policy.Valid(),
		"Must be one of: serial, volume_reset")
}

// checkStartYear rejects a first volume that begins after currentYear, which
// would number every issue before it in volume 0 or below.
func (c ClientConfig) checkStartYear(currentYear int) error {
	validator := &validate.Validator{}
	validator.Custom("config.schedule.startYear", c.Numbering.StartYear > currentYear,
		fmt.Sprintf("Must not be later than %d", currentYear))
	return validator.Err()
}

// ClientID derives the stable repository key of a series opened at createdAt.
//
// Example:
//
//	ClientID("Acme Times", t) // "acme-times-3f9a0c12de"
func ClientID(name string, createdAt time.Time) string {
	return slug.FromOr(name, "series", 24) + "-" + sec.Fingerprint(name, createdAt)[:10]
}

// # Provisioning Contract

// ProvisionRequest asks for the backing repository of a new series.
type ProvisionRequest struct {
	ClientID string
	Name     string
	Config   ClientConfig
}

// ProvisionResult describes the stood-up repository.
type ProvisionResult struct {
	RepoRef      string
	PublicURL    string
	HostingReady bool

	// Warning is a PROVISIONING_PARTIAL_FAILURE when hosting did not enable.
	Warning error
}

// Provisioner stands up the backing repository of a series. A returned error
// means nothing usable was created and the series must not be recorded.
type Provisioner interface {
	Provision(ctx context.Context, request ProvisionRequest) (ProvisionResult, error)
}
