// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package artifact

import (
	"fmt"
	"strings"
	"text/template"
)

// Row is one labelled line of the colophon.
type Row struct {
	Label string
	Value string
}

var colophonTemplate = template.Must(template.New("colophon").Parse(
	`{{range .Rows}}{{.Label}}: {{.Value}}
{{end}}{{with .Note}}
{{.}}
{{end}}`))

// ColophonRows lists the publication record of in, skipping empty values.
func ColophonRows(in Input) []Row {
	rows := []Row{
		{"刊行物名", in.Profile.PublicationName},
		{"巻号", IssueLine(in.Volume, in.Number, in.Serial)},
		{"発行年月日", JapaneseDate(in.Date)},
		{"発行者", in.Profile.Publisher},
		{"特集元", in.Profile.ContentOriginator},
		{"発行者住所", in.Profile.PublisherAddress},
		{"刊行頻度", Frequency},
		{"フォーマット", Format},
		{"根拠法", in.Profile.LegalBasis},
	}
	if in.VolumeDurationYears > 0 {
		rows = append(rows, Row{"採番体系", fmt.Sprintf("式年遷宮型（1巻＝%d年）", in.VolumeDurationYears)})
	}

	kept := rows[:0]
	for _, row := range rows {
		if strings.TrimSpace(row.Value) != "" {
			kept = append(kept, row)
		}
	}
	return kept
}

// Colophon renders the plain-text colophon of in.
func Colophon(in Input) (string, error) {
	var out strings.Builder
	err := colophonTemplate.Execute(&out, struct {
		Rows []Row
		Note string
	}{ColophonRows(in), strings.TrimSpace(in.Profile.Note)})
	if err != nil {
		return "", fmt.Errorf("artifact: colophon: %w", err)
	}
	return out.String(), nil
}
