// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"errors"
	"fmt"
)

// Stage is a checkpoint of one submission.
type Stage string

// Stages in the order a submission reaches them.
const (
	StageReceived         Stage = "received"
	StageSeriesResolved   Stage = "series-resolved"
	StageNumbered         Stage = "numbered"
	StageArtifactBuilt    Stage = "artifact-built"
	StageCommitted        Stage = "committed"
	StageScheduleUpdated  Stage = "schedule-updated"
	StagePublishRequested Stage = "publish-requested"
	StageNotified         Stage = "notified"
	StageFailed           Stage = "failed"
)

// StageError reports the stage a submission could not reach.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// StageOf returns the failing stage recorded in err, or "" if there is none.
func StageOf(err error) Stage {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}
