// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package artifact renders the numbered publication of one issue.

An artifact is a PDF with a cover, a colophon page listing the publication
record, and one QR page per content reference. The materials manifest of the
issue date is committed next to it. Equal inputs give byte-identical colophon
text and the same pages; PDF dates are pinned to the issue date, but image
object numbering inside the file may differ between renders.
*/
package artifact

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoContent is returned when an issue carries no content reference.
var ErrNoContent = errors.New("artifact: no content references")

const (
	// Frequency is the colophon's publication frequency row.
	Frequency = "不定期"
	// Format is the colophon's format row.
	Format = "PDF（電子書籍等・オンライン資料）"
)

// Profile is the publisher identity printed on every artifact of a series.
type Profile struct {
	PublicationName   string
	Publisher         string
	PublisherAddress  string
	ContentOriginator string
	LegalBasis        string
	Note              string
	AccentColor       string
}

// Input describes one issue to render.
type Input struct {
	SeriesName          string
	Title               string
	Serial              int
	Volume              int
	Number              int
	VolumeDurationYears int
	Date                time.Time
	ContentRefs         []string
	Profile             Profile
}

// Artifact is the rendered output of [Builder.Build].
type Artifact struct {
	Filename string
	PDF      []byte
	Pages    int
	Colophon string

	// ResolvedRefs are the absolute URLs printed on the QR pages.
	ResolvedRefs []string
}

// IssueLine formats the volume/number line, e.g. "第1巻 第2号（通巻第2号）".
func IssueLine(volume, number, serial int) string {
	return fmt.Sprintf("第%d巻 第%d号（通巻第%d号）", volume, number, serial)
}

// JapaneseDate formats t as YYYY年M月D日.
func JapaneseDate(t time.Time) string {
	return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
}
