// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schedule

import "context"

// # Schedule Data Access

// Store defines the data access contract for schedules.
type Store interface {

	/*
		Init creates the empty schedule of a new series.

		Parameters:
		  - ctx: context.Context
		  - schedule: Schedule (CurrentSerial must be 0, Issues empty)

		Returns:
		  - error: Storage failures
	*/
	Init(ctx context.Context, schedule Schedule) error

	/*
		Load returns the schedule of a series with its issues ordered by serial.

		Returns:
		  - *Schedule: A copy the caller may modify
		  - error: ErrNotFound if the series has no schedule
	*/
	Load(ctx context.Context, seriesID string) (*Schedule, error)

	/*
		Append records issue as the next serial of the series.

		Description: Succeeds only if CurrentSerial still equals expectedSerial
		and issue.Serial is expectedSerial+1. CurrentSerial advances and the
		issue is inserted in one transaction.

		Returns:
		  - error: ErrSerialConflict if the compare-and-swap fails
	*/
	Append(ctx context.Context, seriesID string, expectedSerial int, issue Issue) error

	// SetMergeRequest records the merge request opened for an issue.
	SetMergeRequest(ctx context.Context, seriesID string, serial int, url string) error
}
