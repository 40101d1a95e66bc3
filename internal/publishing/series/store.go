// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series

import "context"

// # Series Data Access

// Store defines the data access contract for series.
type Store interface {

	/*
		FindActive returns the active series with exactly this name.

		Returns:
		  - *Series: The series
		  - error: SERIES_NOT_FOUND when none is active under name
	*/
	FindActive(ctx context.Context, name string) (*Series, error)

	/*
		Create inserts a new series.

		Returns:
		  - error: CONFLICT if an active series already carries the name
	*/
	Create(ctx context.Context, series *Series) error

	// SetStatus changes the lifecycle status of a series.
	SetStatus(ctx context.Context, id string, status Status) error

	/*
		UpdateIssueCount records count on the active series name.

		Description: The stored value never decreases, so a late call
		carrying an older count is a no-op.
	*/
	UpdateIssueCount(ctx context.Context, name string, count int) error

	/*
		List returns series ordered by creation time, newest first.

		Returns:
		  - []*Series: The page
		  - int: Total number of series
		  - error: Storage failures
	*/
	List(ctx context.Context, limit, offset int) ([]*Series, int, error)

	// ListActive returns every active series ordered by name.
	ListActive(ctx context.Context) ([]*Series, error)
}
