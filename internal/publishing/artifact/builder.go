// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package artifact

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/publishing/numbering"
)

// Page geometry in millimetres (A4 portrait).
const (
	pageWidth   = 210.0
	pageHeight  = 297.0
	accentBar   = 4.0
	qrSize      = 100.0
	qrPixels    = 512
	labelColumn = 40.0
)

// Config configures a [Builder].
type Config struct {
	// FontPath is a TrueType font with CJK coverage. Without it the core
	// Helvetica font is used and non-Latin text does not render.
	FontPath string

	// QRBaseURL resolves content references that are not absolute URLs.
	QRBaseURL string
}

// Builder renders artifacts.
type Builder struct {
	font   []byte
	qrBase *url.URL
}

// NewBuilder loads the configured font once.
func NewBuilder(cfg Config) (*Builder, error) {
	builder := &Builder{}

	if cfg.FontPath != "" {
		font, err := os.ReadFile(cfg.FontPath)
		if err != nil {
			return nil, fmt.Errorf("artifact: read font: %w", err)
		}
		builder.font = font
	}

	if cfg.QRBaseURL != "" {
		base, err := url.Parse(cfg.QRBaseURL)
		if err != nil || !base.IsAbs() {
			return nil, fmt.Errorf("artifact: QR base URL %q must be absolute", cfg.QRBaseURL)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		builder.qrBase = base
	}

	return builder, nil
}

/*
Build renders the artifact of in.

Returns:
  - *Artifact: The PDF, its colophon text and the resolved references
  - error: ErrNoContent, or a rendering failure
*/
func (builder *Builder) Build(in Input) (*Artifact, error) {
	refs, err := builder.ResolveRefs(in.ContentRefs)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, ErrNoContent
	}

	colophon, err := Colophon(in)
	if err != nil {
		return nil, err
	}

	document, pages, err := builder.render(in, refs)
	if err != nil {
		return nil, err
	}

	return &Artifact{
		Filename:     numbering.Filename(in.Serial),
		PDF:          document,
		Pages:        pages,
		Colophon:     colophon,
		ResolvedRefs: refs,
	}, nil
}

// ResolveRefs drops blank references and resolves relative ones against the
// QR base URL.
func (builder *Builder) ResolveRefs(refs []string) ([]string, error) {
	resolved := make([]string, 0, len(refs))
	for _, raw := range refs {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}

		parsed, err := url.Parse(trimmed)
		if err != nil {
			return nil, fmt.Errorf("artifact: content reference %q: %w", trimmed, err)
		}
		if !parsed.IsAbs() && builder.qrBase != nil {
			relative, err := url.Parse(strings.TrimLeft(trimmed, "/"))
			if err != nil {
				return nil, fmt.Errorf("artifact: content reference %q: %w", trimmed, err)
			}
			parsed = builder.qrBase.ResolveReference(relative)
		}
		resolved = append(resolved, parsed.String())
	}
	return resolved, nil
}

// # Rendering

type page struct {
	pdf    *fpdf.Fpdf
	family string
	text   func(string) string
	accent [3]int
}

func (builder *Builder) render(in Input, refs []string) ([]byte, int, error) {
	pdf := fpdf.New("P", "mm", "A4", "")

	stamp := time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC)
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(20, 20, 20)

	p := &page{pdf: pdf, accent: hexRGB(in.Profile.AccentColor)}
	if builder.font != nil {
		pdf.AddUTF8FontFromBytes("body", "", builder.font)
		pdf.AddUTF8FontFromBytes("body", "B", builder.font)
		p.family, p.text = "body", func(s string) string { return s }
	} else {
		p.family, p.text = "Helvetica", pdf.UnicodeTranslatorFromDescriptor("")
	}

	label := numbering.Label(in.Serial)
	pdf.SetTitle(label+" "+in.Title, true)
	pdf.SetSubject(in.Profile.PublicationName, true)
	pdf.SetAuthor(in.Profile.Publisher, true)
	pdf.SetCreator(constants.AppName, false)

	p.cover(in, label)
	p.colophon(in)
	for i, ref := range refs {
		if err := p.qr(in, label, ref, i+1, len(refs)); err != nil {
			return nil, 0, err
		}
	}

	pages := pdf.PageCount()

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, 0, fmt.Errorf("artifact: render pdf: %w", err)
	}
	return out.Bytes(), pages, nil
}

func (p *page) start() {
	p.pdf.AddPage()
	p.pdf.SetFillColor(p.accent[0], p.accent[1], p.accent[2])
	p.pdf.Rect(0, 0, pageWidth, accentBar, "F")
}

func (p *page) line(style string, size, height float64, text string) {
	p.pdf.SetFont(p.family, style, size)
	p.pdf.CellFormat(0, height, p.text(text), "", 1, "C", false, 0, "")
}

func (p *page) cover(in Input, label string) {
	p.start()
	p.pdf.SetY(80)

	p.line("B", 28, 14, in.SeriesName)
	p.pdf.Ln(4)

	p.pdf.SetFont(p.family, "", 18)
	p.pdf.MultiCell(0, 10, p.text(in.Title), "", "C", false)
	p.pdf.Ln(10)

	p.line("", 12, 8, in.Profile.PublicationName)
	p.line("", 11, 7, IssueLine(in.Volume, in.Number, in.Serial)+" "+label)
	p.line("", 11, 7, JapaneseDate(in.Date))
}

func (p *page) colophon(in Input) {
	p.start()
	p.pdf.SetY(30)

	p.pdf.SetFont(p.family, "B", 16)
	p.pdf.CellFormat(0, 10, p.text("奥付"), "", 1, "L", false, 0, "")
	p.pdf.Ln(4)

	for _, row := range ColophonRows(in) {
		p.pdf.SetFont(p.family, "B", 10)
		p.pdf.CellFormat(labelColumn, 8, p.text(row.Label), "B", 0, "L", false, 0, "")
		p.pdf.SetFont(p.family, "", 10)
		p.pdf.MultiCell(0, 8, p.text(row.Value), "B", "L", false)
	}

	if note := strings.TrimSpace(in.Profile.Note); note != "" {
		p.pdf.Ln(6)
		p.pdf.SetFont(p.family, "", 9)
		p.pdf.MultiCell(0, 5, p.text(note), "", "L", false)
	}
}

func (p *page) qr(in Input, label, ref string, index, total int) error {
	image, err := qrcode.Encode(ref, qrcode.Low, qrPixels)
	if err != nil {
		return fmt.Errorf("artifact: qr %d: %w", index, err)
	}

	name := "qr-" + strconv.Itoa(index)
	options := fpdf.ImageOptions{ImageType: "PNG"}
	p.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(image))

	p.start()
	p.pdf.SetY(25)
	p.line("B", 14, 10, fmt.Sprintf("QR %d / %d", index, total))

	p.pdf.ImageOptions(name, (pageWidth-qrSize)/2, 45, qrSize, qrSize, false, options, 0, "")

	p.pdf.SetY(45 + qrSize + 10)
	p.pdf.SetFont(p.family, "", 10)
	p.pdf.MultiCell(0, 6, p.text(ref), "", "C", false)

	p.pdf.SetY(pageHeight - 20)
	p.line("", 8, 6, fmt.Sprintf("%s %s %d/%d", in.Profile.PublicationName, label, index, total))

	return p.pdf.Error()
}

// hexRGB parses #RRGGBB, falling back to a dark blue.
func hexRGB(hex string) [3]int {
	fallback := [3]int{43, 76, 126}
	if len(hex) != 7 || hex[0] != '#' {
		return fallback
	}

	var rgb [3]int
	for i := range rgb {
		value, err := strconv.ParseUint(hex[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return fallback
		}
		rgb[i] = int(value)
	}
	return rgb
}
