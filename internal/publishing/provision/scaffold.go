// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"path"

	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/publishing/repohost"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// autoMergeWorkflow merges every pull request as soon as it is opened.
const autoMergeWorkflow = `name: Auto Merge

on:
  pull_request:
    types: [opened]

permissions:
  contents: write
  pull-requests: write

jobs:
  auto-merge:
    runs-on: ubuntu-latest
    steps:
      - run: gh pr merge ${{ github.event.pull_request.number }} --merge --delete-branch
        env:
          GH_TOKEN: ${{ github.token }}
          GH_REPO: ${{ github.repository }}
`

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.PublicationName}}</title>
</head>
<body>
<h1>{{.PublicationName}}</h1>
<ol id="issues" reversed></ol>
<script>
fetch("schedule.json", {cache: "no-store"})
  .then(function (response) { return response.json(); })
  .then(function (schedule) {
    var list = document.getElementById("issues");
    schedule.issues.slice().reverse().forEach(function (issue) {
      var link = document.createElement("a");
      link.href = "output/" + issue.filename;
      link.textContent = issue.date + " " + issue.title;
      var item = document.createElement("li");
      item.appendChild(link);
      list.appendChild(item);
    });
  });
</script>
</body>
</html>
`))

// clientConfigDocument is the client-config.json shape.
type clientConfigDocument struct {
	ClientID   string `json:"clientId"`
	SeriesName string `json:"seriesName"`
	series.ClientConfig
}

// Scaffold returns the files of a new series repository.
func Scaffold(request series.ProvisionRequest) ([]repohost.File, error) {
	config, err := json.MarshalIndent(clientConfigDocument{
		ClientID:     request.ClientID,
		SeriesName:   request.Name,
		ClientConfig: request.Config,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("provision: encode client config: %w", err)
	}

	empty := schedule.Schedule{
		CadenceMonths:       request.Config.Numbering.CadenceMonths,
		VolumeStartYear:     request.Config.Numbering.StartYear,
		VolumeDurationYears: request.Config.Numbering.VolumeDurationYears,
		Issues:              []schedule.Issue{},
	}
	scheduleJSON, err := empty.EncodeDocument()
	if err != nil {
		return nil, fmt.Errorf("provision: encode schedule: %w", err)
	}

	var index bytes.Buffer
	if err := indexTemplate.Execute(&index, request.Config.Branding); err != nil {
		return nil, fmt.Errorf("provision: render index: %w", err)
	}

	return []repohost.File{
		{Path: constants.PathClientConfig, Content: append(config, '\n')},
		{Path: constants.PathSchedule, Content: scheduleJSON},
		{Path: constants.PathIndex, Content: index.Bytes()},
		{Path: constants.PathWorkflow, Content: []byte(autoMergeWorkflow)},
		{Path: path.Join(constants.PathMaterials, ".gitkeep"), Content: []byte{}},
		{Path: path.Join(constants.PathOutput, ".gitkeep"), Content: []byte{}},
	}, nil
}
