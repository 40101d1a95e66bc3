// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger

import (
	"context"
	"time"
)

// # Ledger Data Access

// Store defines the data access contract for credit codes.
type Store interface {

	/*
		Register persists a new, unused code.

		Parameters:
		  - ctx: context.Context
		  - code: *Code (State must be unused)

		Returns:
		  - error: apperr CONFLICT if the code already exists
	*/
	Register(ctx context.Context, code *Code) error

	/*
		Redeem atomically marks an unused code as used.

		Parameters:
		  - ctx: context.Context
		  - code: string
		  - order: *string (Order to link, nil keeps the registered one)
		  - at: time.Time (Redemption instant)

		Returns:
		  - *Code: The code after redemption
		  - error: DUPLICATE_CODE_REDEMPTION if already used, NOT_FOUND if unknown
	*/
	Redeem(ctx context.Context, code string, order *string, at time.Time) (*Code, error)

	// Find returns the code or NOT_FOUND.
	Find(ctx context.Context, code string) (*Code, error)
}
