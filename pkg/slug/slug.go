// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package slug generates ASCII identifiers from arbitrary Unicode strings.
//
// # Usage
//
// Slugs become the human-readable part of series client IDs and therefore
// of repository names (newsletter-client-<slug>-<hash>).
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches any sequence of characters outside [a-z0-9-].
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9-]+`)
	// multiHyphen collapses multiple consecutive hyphens into one.
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// From converts an arbitrary Unicode string into a URL-safe ASCII slug.
//
// # Transformation Pipeline
//
// 1. Normalizes to NFKD so that full-width Latin letters fold to ASCII.
// 2. Removes combining marks (accents).
// 3. Converts to lowercase.
// 4. Replaces every non [a-z0-9] run with a single hyphen.
// 5. Trims leading/trailing hyphens.
//
// Scripts with no ASCII folding (kana, kanji) produce an empty result.
func From(s string) string {
	t := transform.Chain(norm.NFKD, transform.RemoveFunc(isMn))
	result, _, _ := transform.String(t, s)

	result = strings.ToLower(result)
	result = nonAlphanumeric.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// FromOr is [From] with a fallback for inputs that fold to nothing, truncated
// to at most maxLen bytes without a trailing hyphen.
func FromOr(s, fallback string, maxLen int) string {
	result := From(s)
	if result == "" {
		result = fallback
	}
	if maxLen > 0 && len(result) > maxLen {
		result = strings.TrimRight(result[:maxLen], "-")
	}
	return result
}

// isMn reports whether r is a Unicode non-spacing mark (e.g., accents).
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
