// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package repohost is the version-controlled storage behind every series.

Each series owns one repository. Submissions land as a single commit on a
short-lived branch and reach the default branch through a merge request,
which the repository's auto-merge workflow completes.

Implementations:

  - [GitHubHost]: the GitHub REST API (git data, pulls, pages, contents).
  - [LocalHost]: an embedded badger store that merges requests itself.
  - [Retrying]: bounds and retries any Host's calls.
*/
package repohost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound reports a missing repository, ref or file.
	ErrNotFound = errors.New("repohost: not found")

	// ErrAlreadyExists reports a repository, branch or merge request that exists.
	ErrAlreadyExists = errors.New("repohost: already exists")

	// ErrConflict reports a ref that moved underneath an update.
	ErrConflict = errors.New("repohost: conflict")
)

// # Wire Types

// File is one path written by a commit.
type File struct {
	Path    string
	Content []byte
}

// Repo identifies a created repository.
type Repo struct {
	// Ref is the "owner/name" handle used by every other call.
	Ref           string
	Name          string
	DefaultBranch string
	WebURL        string
}

// MergeRequest is an opened request to merge a branch.
type MergeRequest struct {
	Number int
	URL    string
	Merged bool
}

// Host is the capability set the publishing services need from a repository host.
type Host interface {
	// CreateRepo creates an empty public repository whose default branch exists.
	CreateRepo(ctx context.Context, name, description string) (Repo, error)

	// CommitFiles writes files as one commit on top of branch and returns its ref.
	CommitFiles(ctx context.Context, repoRef, branch, message string, files []File) (string, error)

	// CreateBranch points a new branch at from, a commit ref or a branch name.
	CreateBranch(ctx context.Context, repoRef, branch, from string) error

	// DeleteBranch removes branch. Deleting a missing branch is not an error.
	DeleteBranch(ctx context.Context, repoRef, branch string) error

	// OpenMergeRequest asks to merge head into base.
	OpenMergeRequest(ctx context.Context, repoRef, head, base, title, body string) (MergeRequest, error)

	// EnableHosting publishes branch as a static site and returns its URL.
	EnableHosting(ctx context.Context, repoRef, branch string) (string, error)

	// ReadFile returns the content of path at ref.
	ReadFile(ctx context.Context, repoRef, ref, path string) ([]byte, error)
}

// # Errors

// StatusError is a non-success response of a remote host.
type StatusError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("repohost: %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

// Temporary reports whether repeating the call may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// Unwrap maps well-known statuses onto the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	}
	return nil
}
