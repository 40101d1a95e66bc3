// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package artifact_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/publishing/artifact"
)

func sampleInput() artifact.Input {
	tokyo := time.FixedZone("JST", 9*60*60)
	return artifact.Input{
		SeriesName:          "Acme",
		Title:               "Spring",
		Serial:              2,
		Volume:              1,
		Number:              2,
		VolumeDurationYears: 20,
		Date:                time.Date(2026, time.April, 3, 10, 30, 0, 0, tokyo),
		ContentRefs:         []string{"https://acme.example/a", "  ", "b/c?id=1"},
		Profile: artifact.Profile{
			PublicationName:   "Acme ニュースレター",
			Publisher:         "TokiStorage（佐藤卓也）",
			ContentOriginator: "Acme",
			LegalBasis:        "国立国会図書館法 第25条・第25条の4",
			Note:              "本誌は電子納本されます。",
			AccentColor:       "#112233",
		},
	}
}

func newBuilder(t *testing.T) *artifact.Builder {
	t.Helper()
	builder, err := artifact.NewBuilder(artifact.Config{QRBaseURL: "https://tokistorage.github.io/qr"})
	require.NoError(t, err)
	return builder
}

func TestBuilder_Build(t *testing.T) {
	builder := newBuilder(t)

	first, err := builder.Build(sampleInput())
	require.NoError(t, err)

	assert.Equal(t, "TQ-00002.pdf", first.Filename)
	assert.True(t, bytes.HasPrefix(first.PDF, []byte("%PDF-")))
	assert.Equal(t, 4, first.Pages, "cover, colophon and two QR pages")
	assert.Equal(t, []string{"https://acme.example/a", "https://tokistorage.github.io/qr/b/c?id=1"}, first.ResolvedRefs)

	// Image object numbering inside the PDF is not stable across renders;
	// the colophon text and the document structure are.
	second, err := builder.Build(sampleInput())
	require.NoError(t, err)
	assert.Equal(t, first.Colophon, second.Colophon)
	assert.Equal(t, first.Filename, second.Filename)
	assert.Equal(t, first.Pages, second.Pages)
	assert.Equal(t, first.ResolvedRefs, second.ResolvedRefs)
	assert.True(t, bytes.HasPrefix(second.PDF, []byte("%PDF-")))
}

func TestBuilder_Build_NoContent(t *testing.T) {
	in := sampleInput()
	in.ContentRefs = []string{" ", ""}

	_, err := newBuilder(t).Build(in)
	assert.ErrorIs(t, err, artifact.ErrNoContent)
}

func TestNewBuilder_RejectsRelativeBase(t *testing.T) {
	_, err := artifact.NewBuilder(artifact.Config{QRBaseURL: "qr/"})
	assert.Error(t, err)

	_, err = artifact.NewBuilder(artifact.Config{FontPath: "/nonexistent/font.ttf"})
	assert.Error(t, err)
}

func TestColophon(t *testing.T) {
	text, err := artifact.Colophon(sampleInput())
	require.NoError(t, err)

	expected := "刊行物名: Acme ニュースレター\n" +
		"巻号: 第1巻 第2号（通巻第2号）\n" +
		"発行年月日: 2026年4月3日\n" +
		"発行者: TokiStorage（佐藤卓也）\n" +
		"特集元: Acme\n" +
		"刊行頻度: 不定期\n" +
		"フォーマット: PDF（電子書籍等・オンライン資料）\n" +
		"根拠法: 国立国会図書館法 第25条・第25条の4\n" +
		"採番体系: 式年遷宮型（1巻＝20年）\n" +
		"\n本誌は電子納本されます。\n"
	assert.Equal(t, expected, text)
}

func TestMergeManifest(t *testing.T) {
	in := sampleInput()
	assert.Equal(t, "materials/2026-04-03/manifest.json", artifact.ManifestPath(in.Date))

	first, err := artifact.MergeManifest(nil, in, []string{"https://acme.example/a"})
	require.NoError(t, err)

	in.Serial, in.Title = 3, "Summer"
	second, err := artifact.MergeManifest(first, in, []string{"https://acme.example/b"})
	require.NoError(t, err)

	// Replaying serial 3 replaces its entry.
	replayed, err := artifact.MergeManifest(second, in, []string{"https://acme.example/b"})
	require.NoError(t, err)
	assert.Equal(t, second, replayed)

	var manifest artifact.Manifest
	require.NoError(t, json.Unmarshal(replayed, &manifest))
	assert.Equal(t, "2026-04-03", manifest.Date)
	require.Len(t, manifest.Issues, 2)
	assert.Equal(t, "TQ-00002", manifest.Issues[0].Issue)
	assert.Equal(t, "TQ-00003", manifest.Issues[1].Issue)
	assert.Equal(t, []string{"https://acme.example/b"}, manifest.Issues[1].Materials)

	_, err = artifact.MergeManifest([]byte("not json"), in, nil)
	assert.Error(t, err)
}
