// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package artifact

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/publishing/numbering"
)

// Manifest lists the materials of every issue published on one date.
type Manifest struct {
	Date        string          `json:"date"`
	Issues      []ManifestEntry `json:"issues"`
	LastUpdated string          `json:"lastUpdated"`
}

// ManifestEntry is one issue of a [Manifest].
type ManifestEntry struct {
	Issue     string   `json:"issue"`
	Serial    int      `json:"serial"`
	Title     string   `json:"title"`
	Materials []string `json:"materials"`
}

// ManifestPath returns materials/<YYYY-MM-DD>/manifest.json.
func ManifestPath(date time.Time) string {
	return path.Join(constants.PathMaterials, date.Format(time.DateOnly), "manifest.json")
}

// MergeManifest adds the issue of in to the existing manifest of its date.
// existing may be nil. An entry with the same serial is replaced, so a
// replayed submission does not list its materials twice.
func MergeManifest(existing []byte, in Input, materials []string) ([]byte, error) {
	manifest := Manifest{Date: in.Date.Format(time.DateOnly)}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &manifest); err != nil {
			return nil, fmt.Errorf("artifact: decode manifest: %w", err)
		}
	}

	entry := ManifestEntry{
		Issue:     numbering.Label(in.Serial),
		Serial:    in.Serial,
		Title:     in.Title,
		Materials: append([]string{}, materials...),
	}

	kept := manifest.Issues[:0]
	for _, current := range manifest.Issues {
		if current.Serial != in.Serial {
			kept = append(kept, current)
		}
	}
	manifest.Issues = append(kept, entry)
	sort.Slice(manifest.Issues, func(i, j int) bool { return manifest.Issues[i].Serial < manifest.Issues[j].Serial })
	manifest.LastUpdated = in.Date.Format(time.RFC3339)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("artifact: encode manifest: %w", err)
	}
	return append(data, '\n'), nil
}
