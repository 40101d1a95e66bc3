// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package repohost

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"

	"github.com/taibuivan/kanko/internal/platform/constants"
	"github.com/taibuivan/kanko/internal/platform/metrics"
)

// RetryingHost bounds every call of a [Host] with a timeout and retries
// transient failures with exponential backoff.
type RetryingHost struct {
	next     Host
	attempts int
	timeout  time.Duration
	baseWait time.Duration
	maxWait  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Retrying wraps next. attempts below 1 means a single try; recorder may be nil.
func Retrying(next Host, attempts int, timeout time.Duration, recorder *metrics.Metrics, logger *slog.Logger) *RetryingHost {
	return &RetryingHost{
		next:     next,
		attempts: max(attempts, 1),
		timeout:  timeout,
		baseWait: constants.RetryBaseDelay,
		maxWait:  constants.RetryMaxDelay,
		metrics:  recorder,
		logger:   logger,
	}
}

// IsTransient reports whether err is worth retrying: network failures,
// 5xx and 429 responses, and per-attempt timeouts.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}

func (host *RetryingHost) do(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	var err error

	for attempt := 1; attempt <= host.attempts; attempt++ {
		err = host.once(ctx, call)
		host.metrics.ExternalCall(operation, err == nil)

		if err == nil || !IsTransient(err) || ctx.Err() != nil || attempt == host.attempts {
			return err
		}

		wait := host.backoff(attempt)
		host.logger.WarnContext(ctx, "repohost_call_retry",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func (host *RetryingHost) once(ctx context.Context, call func(ctx context.Context) error) error {
	if host.timeout <= 0 {
		return call(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, host.timeout)
	defer cancel()
	return call(attemptCtx)
}

// backoff doubles from baseWait up to maxWait, with up to 20% jitter.
func (host *RetryingHost) backoff(attempt int) time.Duration {
	wait := host.baseWait << (attempt - 1)
	if wait <= 0 || wait > host.maxWait {
		wait = host.maxWait
	}
	if jitter := int64(wait) / 5; jitter > 0 {
		wait += time.Duration(rand.Int64N(jitter))
	}
	return wait
}

// CreateRepo implements [Host].
func (host *RetryingHost) CreateRepo(ctx context.Context, name, description string) (Repo, error) {
	var repo Repo
	err := host.do(ctx, "create_repo", func(ctx context.Context) error {
		var err error
		repo, err = host.next.CreateRepo(ctx, name, description)
		return err
	})
	return repo, err
}

// CommitFiles implements [Host].
func (host *RetryingHost) CommitFiles(ctx context.Context, repoRef, branch, message string, files []File) (string, error) {
	var ref string
	err := host.do(ctx, "commit_files", func(ctx context.Context) error {
		var err error
		ref, err = host.next.CommitFiles(ctx, repoRef, branch, message, files)
		return err
	})
	return ref, err
}

// CreateBranch implements [Host].
func (host *RetryingHost) CreateBranch(ctx context.Context, repoRef, branch, from string) error {
	return host.do(ctx, "create_branch", func(ctx context.Context) error {
		err := host.next.CreateBranch(ctx, repoRef, branch, from)
		// A retried create may find its own earlier success.
		if errors.Is(err, ErrAlreadyExists) {
			return nil
		}
		return err
	})
}

// DeleteBranch implements [Host].
func (host *RetryingHost) DeleteBranch(ctx context.Context, repoRef, branch string) error {
	return host.do(ctx, "delete_branch", func(ctx context.Context) error {
		return host.next.DeleteBranch(ctx, repoRef, branch)
	})
}

// OpenMergeRequest implements [Host].
func (host *RetryingHost) OpenMergeRequest(ctx context.Context, repoRef, head, base, title, body string) (MergeRequest, error) {
	var request MergeRequest
	err := host.do(ctx, "open_merge_request", func(ctx context.Context) error {
		var err error
		request, err = host.next.OpenMergeRequest(ctx, repoRef, head, base, title, body)
		return err
	})
	return request, err
}

// EnableHosting implements [Host].
func (host *RetryingHost) EnableHosting(ctx context.Context, repoRef, branch string) (string, error) {
	var url string
	err := host.do(ctx, "enable_hosting", func(ctx context.Context) error {
		var err error
		url, err = host.next.EnableHosting(ctx, repoRef, branch)
		return err
	})
	return url, err
}

// ReadFile implements [Host].
func (host *RetryingHost) ReadFile(ctx context.Context, repoRef, ref, path string) ([]byte, error) {
	var data []byte
	err := host.do(ctx, "read_file", func(ctx context.Context) error {
		var err error
		data, err = host.next.ReadFile(ctx, repoRef, ref, path)
		return err
	})
	return data, err
}
