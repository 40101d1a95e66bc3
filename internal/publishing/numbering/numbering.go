// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package numbering computes the citable position of the next issue of a series.

Three coordinates identify an issue:

  - Serial: gapless, 1-based, strictly increasing within a series.
  - Volume: a calendar epoch. Volume 1 spans the first VolumeDurationYears
    years from VolumeStartYear, volume 2 the next span, and so on. It never
    depends on how many issues were published.
  - Number: the ordinal inside the volume, chosen by a [Policy].

Everything here is pure; the same [Input] always yields the same [Result].
*/
package numbering

import (
	"errors"
	"fmt"

	"github.com/taibuivan/kanko/internal/platform/constants"
)

// ErrInvalidInput is wrapped by every rejection from [Next].
var ErrInvalidInput = errors.New("numbering: invalid input")

// # Number Policies

// Policy selects how [Result.Number] is derived.
type Policy string

const (
	// PolicySerial sets Number equal to Serial. It never resets at a volume
	// boundary. This is the default for every series.
	PolicySerial Policy = "serial"

	// PolicyVolumeReset counts issues inside the volume: the first issue of a
	// new volume is number 1, later ones continue from the previous number.
	PolicyVolumeReset Policy = "volume_reset"
)

// Valid reports whether p is a known policy. The empty policy is valid and
// means [PolicySerial].
func (p Policy) Valid() bool {
	switch p {
	case "", PolicySerial, PolicyVolumeReset:
		return true
	}
	return false
}

// # Engine

// Input is everything the engine needs about a series at one instant.
type Input struct {
	// CurrentSerial is the schedule's high-water mark (0 for a fresh series).
	CurrentSerial int

	VolumeStartYear     int
	VolumeDurationYears int

	// CurrentYear is the calendar year of the issue date, in the series' zone.
	CurrentYear int

	Policy Policy

	// LastVolume and LastNumber describe the most recent issue. Both are 0
	// when the schedule is empty. Only [PolicyVolumeReset] reads them.
	LastVolume int
	LastNumber int
}

// Result is the computed position of the next issue.
type Result struct {
	Serial int
	Volume int
	Number int
}

// Next computes the position of the issue following in.CurrentSerial.
//
// Volume is floor((CurrentYear-VolumeStartYear)/VolumeDurationYears)+1, with
// floor division, so a year before the start year gives volume 0 or below.
// Series refuse such start years when they are opened.
func Next(in Input) (Result, error) {
	if in.CurrentSerial < 0 {
		return Result{}, fmt.Errorf("%w: current serial %d is negative", ErrInvalidInput, in.CurrentSerial)
	}
	if in.VolumeDurationYears <= 0 {
		return Result{}, fmt.Errorf("%w: volume duration %d must be positive", ErrInvalidInput, in.VolumeDurationYears)
	}
	if !in.Policy.Valid() {
		return Result{}, fmt.Errorf("%w: unknown number policy %q", ErrInvalidInput, in.Policy)
	}

	volume := floorDiv(in.CurrentYear-in.VolumeStartYear, in.VolumeDurationYears) + 1

	serial := in.CurrentSerial + 1
	result := Result{Serial: serial, Volume: volume, Number: serial}

	if in.Policy == PolicyVolumeReset {
		result.Number = 1
		if in.CurrentSerial > 0 && in.LastVolume == volume {
			result.Number = in.LastNumber + 1
		}
	}

	return result, nil
}

// floorDiv divides rounding toward negative infinity. b must be positive.
func floorDiv(a, b int) int {
	quotient := a / b
	if a%b != 0 && a < 0 {
		quotient--
	}
	return quotient
}

// # Artifact Naming

// Label returns the catalogue label of a serial, zero-padded to at least five digits.
func Label(serial int) string {
	return fmt.Sprintf("%s%05d", constants.ArtifactPrefix, serial)
}

// Filename returns the artifact file name of a serial (TQ-00001.pdf).
func Filename(serial int) string {
	return Label(serial) + ".pdf"
}
