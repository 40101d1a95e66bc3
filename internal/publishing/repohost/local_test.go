// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repohost_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/publishing/repohost"
)

func newLocalHost(t *testing.T) *repohost.LocalHost {
	t.Helper()

	host, err := repohost.NewLocalHost(repohost.LocalConfig{
		Owner:        "kanko",
		PagesBaseURL: "https://kanko.example",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = host.Close() })
	return host
}

func TestLocalHost_CommitBranchMerge(t *testing.T) {
	host := newLocalHost(t)
	ctx := context.Background()

	repo, err := host.CreateRepo(ctx, "newsletter-client-acme", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "kanko/newsletter-client-acme", repo.Ref)
	assert.Equal(t, "main", repo.DefaultBranch)

	_, err = host.CreateRepo(ctx, "newsletter-client-acme", "Acme")
	assert.ErrorIs(t, err, repohost.ErrAlreadyExists)

	scaffold, err := host.CommitFiles(ctx, repo.Ref, "main", "scaffold", []repohost.File{
		{Path: "schedule.json", Content: []byte(`{"current_serial":0}`)},
	})
	require.NoError(t, err)
	assert.Len(t, scaffold, 40)

	require.NoError(t, host.CreateBranch(ctx, repo.Ref, "submit/tq-00001-a", scaffold))
	assert.ErrorIs(t, host.CreateBranch(ctx, repo.Ref, "submit/tq-00001-a", "main"), repohost.ErrAlreadyExists)

	issue, err := host.CommitFiles(ctx, repo.Ref, "submit/tq-00001-a", "TQ-00001", []repohost.File{
		{Path: "output/TQ-00001.pdf", Content: []byte("%PDF")},
		{Path: "schedule.json", Content: []byte(`{"current_serial":1}`)},
	})
	require.NoError(t, err)

	// main is untouched until the merge request lands.
	onMain, err := host.ReadFile(ctx, repo.Ref, "main", "schedule.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_serial":0}`, string(onMain))

	merge, err := host.OpenMergeRequest(ctx, repo.Ref, "submit/tq-00001-a", "main", "TQ-00001", "")
	require.NoError(t, err)
	assert.True(t, merge.Merged)
	assert.Equal(t, 1, merge.Number)
	assert.Equal(t, "local://kanko/newsletter-client-acme/pull/1", merge.URL)

	onMain, err = host.ReadFile(ctx, repo.Ref, "main", "schedule.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"current_serial":1}`, string(onMain))

	pdf, err := host.ReadFile(ctx, repo.Ref, issue, "output/TQ-00001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf))

	branches, err := host.Branches(ctx, repo.Ref)
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, branches)

	// The merged commit can still seed the next branch.
	require.NoError(t, host.CreateBranch(ctx, repo.Ref, "submit/tq-00002-b", issue))
	require.NoError(t, host.DeleteBranch(ctx, repo.Ref, "submit/tq-00002-b"))
	require.NoError(t, host.DeleteBranch(ctx, repo.Ref, "submit/tq-00002-b"))

	_, err = host.ReadFile(ctx, repo.Ref, "main", "missing.txt")
	assert.ErrorIs(t, err, repohost.ErrNotFound)
}

func TestLocalHost_ConcurrentCommits(t *testing.T) {
	host := newLocalHost(t)
	ctx := context.Background()

	repo, err := host.CreateRepo(ctx, "newsletter-client-busy", "")
	require.NoError(t, err)

	const writers = 6
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := host.CommitFiles(ctx, repo.Ref, "main", "write", []repohost.File{
				{Path: fmt.Sprintf("materials/%d.txt", i), Content: []byte("x")},
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := range writers {
		_, err := host.ReadFile(ctx, repo.Ref, "main", fmt.Sprintf("materials/%d.txt", i))
		assert.NoError(t, err, "file %d lost", i)
	}
}

func TestLocalHost_EnableHosting(t *testing.T) {
	host := newLocalHost(t)
	ctx := context.Background()

	repo, err := host.CreateRepo(ctx, "newsletter-client-site", "")
	require.NoError(t, err)

	url, err := host.EnableHosting(ctx, repo.Ref, "main")
	require.NoError(t, err)
	assert.Equal(t, "https://kanko.example/newsletter-client-site/", url)

	hosted, err := host.Hosted(ctx, repo.Ref)
	require.NoError(t, err)
	assert.True(t, hosted)

	_, err = host.EnableHosting(ctx, "kanko/unknown", "main")
	assert.ErrorIs(t, err, repohost.ErrNotFound)
}
