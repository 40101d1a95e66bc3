// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kanko/internal/platform/scheduler"
)

type fakeJob struct {
	runs  int
	err   error
	panic bool
}

func (j *fakeJob) Name() string { return "fake" }

func (j *fakeJob) Run(ctx context.Context) error {
	j.runs++
	if j.panic {
		panic("job exploded")
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("expected a deadline")
	}
	return j.err
}

func newScheduler() *scheduler.Scheduler {
	return scheduler.New(time.UTC, time.Minute, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRegister_RejectsBadSpec(t *testing.T) {
	s := newScheduler()

	assert.NoError(t, s.Register("0 9 1 * *", &fakeJob{}))
	assert.Error(t, s.Register("every full moon", &fakeJob{}))
}

func TestRunNow(t *testing.T) {
	s := newScheduler()

	ok := &fakeJob{}
	s.RunNow(ok)
	assert.Equal(t, 1, ok.runs)

	failing := &fakeJob{err: errors.New("smtp down")}
	assert.NotPanics(t, func() { s.RunNow(failing) })

	panicking := &fakeJob{panic: true}
	assert.NotPanics(t, func() { s.RunNow(panicking) })
	assert.Equal(t, 1, panicking.runs)
}

func TestStartStop(t *testing.T) {
	s := newScheduler()
	s.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
