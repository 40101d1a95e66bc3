// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package numbering_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/publishing/numbering"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name  string
		input numbering.Input
		want  numbering.Result
	}{
		{
			name:  "fresh_series",
			input: numbering.Input{CurrentSerial: 0, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2026},
			want:  numbering.Result{Serial: 1, Volume: 1, Number: 1},
		},
		{
			name:  "last_year_of_first_volume",
			input: numbering.Input{CurrentSerial: 41, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2045},
			want:  numbering.Result{Serial: 42, Volume: 1, Number: 42},
		},
		{
			name:  "second_volume_keeps_serial_as_number",
			input: numbering.Input{CurrentSerial: 80, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2046},
			want:  numbering.Result{Serial: 81, Volume: 2, Number: 81},
		},
		{
			name:  "one_year_volumes",
			input: numbering.Input{CurrentSerial: 3, VolumeStartYear: 2020, VolumeDurationYears: 1, CurrentYear: 2026},
			want:  numbering.Result{Serial: 4, Volume: 7, Number: 4},
		},
		{
			name:  "year_before_start_gives_volume_zero",
			input: numbering.Input{CurrentSerial: 0, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2025},
			want:  numbering.Result{Serial: 1, Volume: 0, Number: 1},
		},
		{
			name:  "floor_division_below_start",
			input: numbering.Input{CurrentSerial: 2, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2005},
			want:  numbering.Result{Serial: 3, Volume: -1, Number: 3},
		},
		{
			name: "reset_policy_continues_inside_volume",
			input: numbering.Input{CurrentSerial: 5, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2030,
				Policy: numbering.PolicyVolumeReset, LastVolume: 1, LastNumber: 5},
			want: numbering.Result{Serial: 6, Volume: 1, Number: 6},
		},
		{
			name: "reset_policy_restarts_at_new_volume",
			input: numbering.Input{CurrentSerial: 80, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2046,
				Policy: numbering.PolicyVolumeReset, LastVolume: 1, LastNumber: 80},
			want: numbering.Result{Serial: 81, Volume: 2, Number: 1},
		},
		{
			name: "reset_policy_first_issue",
			input: numbering.Input{CurrentSerial: 0, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2027,
				Policy: numbering.PolicyVolumeReset},
			want: numbering.Result{Serial: 1, Volume: 1, Number: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numbering.Next(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Identical inputs give identical results.
			again, err := numbering.Next(tt.input)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestNext_Properties(t *testing.T) {
	for serial := 0; serial < 50; serial += 7 {
		for duration := 1; duration <= 25; duration += 4 {
			for year := 1990; year < 2100; year += 9 {
				got, err := numbering.Next(numbering.Input{
					CurrentSerial:       serial,
					VolumeStartYear:     2026,
					VolumeDurationYears: duration,
					CurrentYear:         year,
				})
				require.NoError(t, err)
				assert.Equal(t, serial+1, got.Serial)
				assert.Equal(t, floorDiv(year-2026, duration)+1, got.Volume)
				assert.Equal(t, got.Serial, got.Number)
			}
		}
	}
}

// floorDiv is the reference floor division for the property check.
func floorDiv(a, b int) int {
	return int(math.Floor(float64(a) / float64(b)))
}

func TestNext_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input numbering.Input
	}{
		{"negative_serial", numbering.Input{CurrentSerial: -1, VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2026}},
		{"zero_duration", numbering.Input{VolumeStartYear: 2026, VolumeDurationYears: 0, CurrentYear: 2026}},
		{"negative_duration", numbering.Input{VolumeStartYear: 2026, VolumeDurationYears: -5, CurrentYear: 2026}},
		{"unknown_policy", numbering.Input{VolumeStartYear: 2026, VolumeDurationYears: 20, CurrentYear: 2026, Policy: "roman"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := numbering.Next(tt.input)
			assert.ErrorIs(t, err, numbering.ErrInvalidInput)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "TQ-00001.pdf", numbering.Filename(1))
	assert.Equal(t, "TQ-00042", numbering.Label(42))
	assert.Equal(t, "TQ-123456.pdf", numbering.Filename(123456))
}
