// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kanko/pkg/slug"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme", "acme"},
		{"Hilton Tokyo Bay", "hilton-tokyo-bay"},
		{"Café  Société!!", "cafe-societe"},
		{"ＡＢＣ　Ｑ１", "abc-q1"},
		{"ヒルトン東京ベイ", ""},
		{"--edge--", "edge"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.From(tt.in))
		})
	}
}

func TestFromOr(t *testing.T) {
	assert.Equal(t, "series", slug.FromOr("東京", "series", 24))
	assert.Equal(t, "a-very-long-series", slug.FromOr("A very long series name", "series", 19))
	assert.Equal(t, "acme", slug.FromOr("Acme", "series", 0))
}
