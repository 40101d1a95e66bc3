// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package provision_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/provision"
	"github.com/taibuivan/kanko/internal/publishing/repohost"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

var errHostDown = errors.New("host down")

// brokenHost fails selected operations of an embedded host.
type brokenHost struct {
	repohost.Host
	failCreate  bool
	failCommit  bool
	failHosting bool
}

func (h *brokenHost) CreateRepo(ctx context.Context, name, description string) (repohost.Repo, error) {
	if h.failCreate {
		return repohost.Repo{}, errHostDown
	}
	return h.Host.CreateRepo(ctx, name, description)
}

func (h *brokenHost) CommitFiles(ctx context.Context, repoRef, branch, message string, files []repohost.File) (string, error) {
	if h.failCommit {
		return "", errHostDown
	}
	return h.Host.CommitFiles(ctx, repoRef, branch, message, files)
}

func (h *brokenHost) EnableHosting(ctx context.Context, repoRef, branch string) (string, error) {
	if h.failHosting {
		return "", errHostDown
	}
	return h.Host.EnableHosting(ctx, repoRef, branch)
}

func setup(t *testing.T) (*repohost.LocalHost, *notify.MemoryNotifier, *slog.Logger) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	host, err := repohost.NewLocalHost(repohost.LocalConfig{
		Owner:        "kanko",
		PagesBaseURL: "https://kanko.example",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close() })

	return host, notify.NewMemoryNotifier(), logger
}

func acmeRequest() provision.Request {
	return provision.Request{
		ClientID: "acme-3f9a0c12de",
		Name:     "Acme",
		Config: series.ClientConfig{}.Resolve("Acme", series.Defaults{
			VolumeStartYear:     2026,
			VolumeDurationYears: 20,
		}),
	}
}

func TestProvision_Success(t *testing.T) {
	host, notifier, logger := setup(t)
	service := provision.NewService(host, notifier, logger)
	ctx := context.Background()

	result, err := service.Provision(ctx, acmeRequest())
	require.NoError(t, err)

	assert.Equal(t, "kanko/newsletter-client-acme-3f9a0c12de", result.RepoRef)
	assert.Equal(t, "https://kanko.example/newsletter-client-acme-3f9a0c12de/", result.PublicURL)
	assert.True(t, result.HostingReady)
	assert.NoError(t, result.Warning)
	assert.Equal(t, []string{notify.EventSeriesProvisioned}, notifier.Events())

	hosted, err := host.Hosted(ctx, result.RepoRef)
	require.NoError(t, err)
	assert.True(t, hosted)

	for _, path := range []string{
		"client-config.json",
		"schedule.json",
		"index.html",
		".github/workflows/auto-merge.yml",
		"materials/.gitkeep",
		"output/.gitkeep",
	} {
		_, err := host.ReadFile(ctx, result.RepoRef, "main", path)
		assert.NoError(t, err, path)
	}

	raw, err := host.ReadFile(ctx, result.RepoRef, "main", "schedule.json")
	require.NoError(t, err)
	document, err := schedule.DecodeDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, document.CurrentSerial)
	assert.Empty(t, document.Issues)
	assert.Equal(t, 2026, document.VolumeStartYear)
	assert.Equal(t, 20, document.VolumeDurationYears)

	raw, err = host.ReadFile(ctx, result.RepoRef, "main", "client-config.json")
	require.NoError(t, err)
	var config map[string]any
	require.NoError(t, json.Unmarshal(raw, &config))
	assert.Equal(t, "acme-3f9a0c12de", config["clientId"])
	assert.Equal(t, "Acme", config["seriesName"])
	assert.Contains(t, config, "branding")
	assert.Contains(t, config, "schedule")
}

func TestProvision_WorkflowMergesOnOpen(t *testing.T) {
	host, notifier, logger := setup(t)
	ctx := context.Background()

	result, err := provision.NewService(host, notifier, logger).Provision(ctx, acmeRequest())
	require.NoError(t, err)

	workflow, err := host.ReadFile(ctx, result.RepoRef, "main", ".github/workflows/auto-merge.yml")
	require.NoError(t, err)
	assert.Contains(t, string(workflow), "types: [opened]")
	assert.Contains(t, string(workflow), "gh pr merge ${{ github.event.pull_request.number }} --merge --delete-branch")
}

func TestProvision_HostingFailureIsDegraded(t *testing.T) {
	local, notifier, logger := setup(t)
	host := &brokenHost{Host: local, failHosting: true}

	result, err := provision.NewService(host, notifier, logger).Provision(context.Background(), acmeRequest())
	require.NoError(t, err)

	assert.False(t, result.HostingReady)
	assert.Empty(t, result.PublicURL)
	assert.NotEmpty(t, result.RepoRef)
	assert.True(t, apperr.HasCode(result.Warning, apperr.CodeProvisioningPartialFailure))
	assert.ErrorIs(t, result.Warning, errHostDown)
	assert.Equal(t, []string{notify.EventProvisioningDegraded}, notifier.Events())
}

func TestProvision_HardFailures(t *testing.T) {
	tests := []struct {
		name string
		host func(repohost.Host) repohost.Host
	}{
		{"create repo", func(h repohost.Host) repohost.Host { return &brokenHost{Host: h, failCreate: true} }},
		{"scaffold commit", func(h repohost.Host) repohost.Host { return &brokenHost{Host: h, failCommit: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local, notifier, logger := setup(t)

			_, err := provision.NewService(tt.host(local), notifier, logger).Provision(context.Background(), acmeRequest())
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeProvisioningFailed))
			assert.ErrorIs(t, err, errHostDown)
			assert.Equal(t, []string{notify.EventProvisioningFailed}, notifier.Events())
		})
	}
}

func TestProvision_NotificationFailureIsIgnored(t *testing.T) {
	host, notifier, logger := setup(t)
	notifier.FailWith(errors.New("smtp down"))

	result, err := provision.NewService(host, notifier, logger).Provision(context.Background(), acmeRequest())
	require.NoError(t, err)
	assert.True(t, result.HostingReady)
}

func TestScaffold_IndexEscapesName(t *testing.T) {
	request := acmeRequest()
	request.Config.Branding.PublicationName = "<b>Acme</b>"

	files, err := provision.Scaffold(request)
	require.NoError(t, err)

	for _, file := range files {
		if file.Path == "index.html" {
			assert.Contains(t, string(file.Content), "&lt;b&gt;Acme&lt;/b&gt;")
			return
		}
	}
	t.Fatal("index.html not scaffolded")
}
