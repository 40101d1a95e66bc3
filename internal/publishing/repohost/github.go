// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repohost

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/taibuivan/kanko/internal/platform/constants"
)

// GitHubConfig configures a [GitHubHost].
type GitHubConfig struct {
	// APIURL is the REST root, https://api.github.com unless on Enterprise.
	APIURL string
	Token  string
	// Owner is the user or organisation that owns series repositories.
	Owner string
	// PagesBaseURL is used for the public URL when Pages does not report one.
	PagesBaseURL string
}

// GitHubHost implements [Host] over the GitHub REST API.
type GitHubHost struct {
	client  *http.Client
	limiter *rate.Limiter
	apiURL  string
	owner   string
	pages   string
}

var commitSHA = regexp.MustCompile(`^[0-9a-f]{40}$`)

// NewGitHubHost builds a client authenticated with a static token.
func NewGitHubHost(ctx context.Context, cfg GitHubConfig) *GitHubHost {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})

	return &GitHubHost{
		client:  oauth2.NewClient(ctx, source),
		limiter: rate.NewLimiter(rate.Limit(constants.GitHubRequestsPerSecond), 1),
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		owner:   cfg.Owner,
		pages:   cfg.PagesBaseURL,
	}
}

// # Transport

type githubError struct {
	Message string `json:"message"`
	Errors  []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// call sends one JSON request. A nil out discards the response body.
func (host *GitHubHost) call(ctx context.Context, operation, method, endpoint string, in, out any) error {
	if err := host.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("repohost: %s: encode: %w", operation, err)
		}
		body = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, host.apiURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("repohost: %s: %w", operation, err)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if in != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := host.client.Do(request)
	if err != nil {
		return fmt.Errorf("repohost: %s: %w", operation, err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 300 {
		return decodeStatus(operation, response)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("repohost: %s: decode: %w", operation, err)
	}
	return nil
}

func decodeStatus(operation string, response *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(response.Body, 64<<10))

	var parsed githubError
	message := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &parsed) == nil && parsed.Message != "" {
		message = parsed.Message
		for _, detail := range parsed.Errors {
			if detail.Message != "" {
				message += "; " + detail.Message
			}
		}
	}

	statusErr := &StatusError{Operation: operation, StatusCode: response.StatusCode, Message: message}

	// 422 carries both "already exists" and "not a fast forward".
	if response.StatusCode == http.StatusUnprocessableEntity {
		lower := strings.ToLower(message)
		switch {
		case strings.Contains(lower, "already exists"):
			return errors.Join(ErrAlreadyExists, statusErr)
		case strings.Contains(lower, "fast forward"):
			return errors.Join(ErrConflict, statusErr)
		}
	}
	return statusErr
}

func (host *GitHubHost) repoPath(repoRef string, segments ...string) string {
	return "/repos/" + repoRef + "/" + strings.Join(segments, "/")
}

// # Repositories

type githubRepo struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
}

// CreateRepo implements [Host]. It creates under the configured organisation
// and falls back to the authenticated user when the owner is not one.
func (host *GitHubHost) CreateRepo(ctx context.Context, name, description string) (Repo, error) {
	in := map[string]any{
		"name":        name,
		"description": description,
		"private":     false,
		"auto_init":   true,
		"has_issues":  false,
		"has_wiki":    false,
	}

	var created githubRepo
	err := host.call(ctx, "create_repo", http.MethodPost, "/orgs/"+url.PathEscape(host.owner)+"/repos", in, &created)
	if errors.Is(err, ErrNotFound) {
		err = host.call(ctx, "create_repo", http.MethodPost, "/user/repos", in, &created)
	}
	if errors.Is(err, ErrAlreadyExists) {
		ref := host.owner + "/" + name
		if getErr := host.call(ctx, "get_repo", http.MethodGet, "/repos/"+ref, nil, &created); getErr != nil {
			return Repo{}, err
		}
		err = nil
	}
	if err != nil {
		return Repo{}, err
	}

	return Repo{
		Ref:           created.FullName,
		Name:          created.Name,
		DefaultBranch: created.DefaultBranch,
		WebURL:        created.HTMLURL,
	}, nil
}

// # Git Data

type githubRef struct {
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

type githubSHA struct {
	SHA string `json:"sha"`
}

type githubCommit struct {
	SHA  string    `json:"sha"`
	Tree githubSHA `json:"tree"`
}

type githubTreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

func (host *GitHubHost) branchHead(ctx context.Context, repoRef, branch string) (string, error) {
	var ref githubRef
	err := host.call(ctx, "get_ref", http.MethodGet, host.repoPath(repoRef, "git", "ref", "heads", branch), nil, &ref)
	return ref.Object.SHA, err
}

/*
CommitFiles implements [Host].

Description: Blobs, a tree based on the branch head, and a commit are created
through the git data API, then the branch is fast-forwarded. A branch that
moved in between fails with ErrConflict.
*/
func (host *GitHubHost) CommitFiles(ctx context.Context, repoRef, branch, message string, files []File) (string, error) {
	parent, err := host.branchHead(ctx, repoRef, branch)
	if err != nil {
		return "", err
	}

	var parentCommit githubCommit
	if err := host.call(ctx, "get_commit", http.MethodGet, host.repoPath(repoRef, "git", "commits", parent), nil, &parentCommit); err != nil {
		return "", err
	}

	entries := make([]githubTreeEntry, 0, len(files))
	for _, file := range files {
		var blob githubSHA
		in := map[string]string{
			"content":  base64.StdEncoding.EncodeToString(file.Content),
			"encoding": "base64",
		}
		if err := host.call(ctx, "create_blob", http.MethodPost, host.repoPath(repoRef, "git", "blobs"), in, &blob); err != nil {
			return "", err
		}
		entries = append(entries, githubTreeEntry{Path: file.Path, Mode: "100644", Type: "blob", SHA: blob.SHA})
	}

	var tree githubSHA
	treeIn := map[string]any{"base_tree": parentCommit.Tree.SHA, "tree": entries}
	if err := host.call(ctx, "create_tree", http.MethodPost, host.repoPath(repoRef, "git", "trees"), treeIn, &tree); err != nil {
		return "", err
	}

	var commit githubSHA
	commitIn := map[string]any{"message": message, "tree": tree.SHA, "parents": []string{parent}}
	if err := host.call(ctx, "create_commit", http.MethodPost, host.repoPath(repoRef, "git", "commits"), commitIn, &commit); err != nil {
		return "", err
	}

	refIn := map[string]any{"sha": commit.SHA, "force": false}
	if err := host.call(ctx, "update_ref", http.MethodPatch, host.repoPath(repoRef, "git", "refs", "heads", branch), refIn, nil); err != nil {
		return "", err
	}

	return commit.SHA, nil
}

// CreateBranch implements [Host].
func (host *GitHubHost) CreateBranch(ctx context.Context, repoRef, branch, from string) error {
	sha := from
	if !commitSHA.MatchString(from) {
		head, err := host.branchHead(ctx, repoRef, from)
		if err != nil {
			return err
		}
		sha = head
	}

	in := map[string]string{"ref": "refs/heads/" + branch, "sha": sha}
	return host.call(ctx, "create_ref", http.MethodPost, host.repoPath(repoRef, "git", "refs"), in, nil)
}

// DeleteBranch implements [Host].
func (host *GitHubHost) DeleteBranch(ctx context.Context, repoRef, branch string) error {
	err := host.call(ctx, "delete_ref", http.MethodDelete, host.repoPath(repoRef, "git", "refs", "heads", branch), nil, nil)

	var status *StatusError
	if errors.Is(err, ErrNotFound) || (errors.As(err, &status) && status.StatusCode == http.StatusUnprocessableEntity) {
		return nil
	}
	return err
}

// # Pull Requests

type githubPull struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
	Merged  bool   `json:"merged"`
}

// OpenMergeRequest implements [Host]. An open pull request for the same head
// is returned instead of a second one.
func (host *GitHubHost) OpenMergeRequest(ctx context.Context, repoRef, head, base, title, body string) (MergeRequest, error) {
	in := map[string]string{"title": title, "head": head, "base": base, "body": body}

	var pull githubPull
	err := host.call(ctx, "create_pull", http.MethodPost, host.repoPath(repoRef, "pulls"), in, &pull)
	if errors.Is(err, ErrAlreadyExists) {
		var open []githubPull
		owner, _, _ := strings.Cut(repoRef, "/")
		query := "?state=open&head=" + url.QueryEscape(owner+":"+head)
		if listErr := host.call(ctx, "list_pulls", http.MethodGet, host.repoPath(repoRef, "pulls")+query, nil, &open); listErr == nil && len(open) > 0 {
			pull, err = open[0], nil
		}
	}
	if err != nil {
		return MergeRequest{}, err
	}

	return MergeRequest{Number: pull.Number, URL: pull.HTMLURL, Merged: pull.Merged}, nil
}

// # Hosting

type githubPages struct {
	HTMLURL string `json:"html_url"`
}

// EnableHosting implements [Host]. Pages already enabled counts as success.
func (host *GitHubHost) EnableHosting(ctx context.Context, repoRef, branch string) (string, error) {
	in := map[string]any{"source": map[string]string{"branch": branch, "path": "/"}}

	var pages githubPages
	err := host.call(ctx, "enable_pages", http.MethodPost, host.repoPath(repoRef, "pages"), in, &pages)
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists) {
		err = host.call(ctx, "get_pages", http.MethodGet, host.repoPath(repoRef, "pages"), nil, &pages)
	}
	if err != nil {
		return "", err
	}

	if pages.HTMLURL != "" {
		return pages.HTMLURL, nil
	}
	_, name, _ := strings.Cut(repoRef, "/")
	return strings.TrimRight(host.pages, "/") + "/" + name + "/", nil
}

// # Contents

type githubContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// ReadFile implements [Host].
func (host *GitHubHost) ReadFile(ctx context.Context, repoRef, ref, filePath string) ([]byte, error) {
	endpoint := host.repoPath(repoRef, "contents", path.Clean(filePath)) + "?ref=" + url.QueryEscape(ref)

	var content githubContent
	if err := host.call(ctx, "get_contents", http.MethodGet, endpoint, nil, &content); err != nil {
		return nil, err
	}
	if content.Encoding != "base64" {
		return nil, fmt.Errorf("repohost: get_contents: unsupported encoding %q", content.Encoding)
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("repohost: get_contents: %w", err)
	}
	return data, nil
}
