// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package ledger tracks purchased credit codes and their redemption.

A credit code is the right to publish, created when a payment is confirmed
and redeemed exactly once when the customer activates it.

Core Responsibility:

  - Registration: Records a code with its kind and quantity, generating a
    structured token when the caller does not supply one.
  - Redemption: Moves a code from unused to used atomically; every later
    activation fails with DUPLICATE_CODE_REDEMPTION and changes nothing.
*/
package ledger

import "time"

// # Domain Enums

// Kind is the product a code was bought for.
type Kind string

const (
	// KindMultiQR grants a batch of QR issues.
	KindMultiQR Kind = "multiQR"

	// KindTokushu grants a special-feature issue.
	KindTokushu Kind = "tokushu"
)

// IsValid reports whether k is a recognised [Kind].
func (k Kind) IsValid() bool {
	return k == KindMultiQR || k == KindTokushu
}

// State is the redemption state of a code.
type State string

const (
	StateUnused State = "unused"
	StateUsed   State = "used"
)

// # Core Entities

// Code is one redeemable credit code.
type Code struct {
	Code        string     `json:"code"`
	Quantity    int        `json:"quantity"`
	Kind        Kind       `json:"kind"`
	State       State      `json:"state"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	LinkedOrder *string    `json:"linked_order,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// # Field Identifiers

const (
	FieldCode     = "code"
	FieldKind     = "kind"
	FieldQuantity = "quantity"
	FieldOrder    = "order"
)

// MaxCodeLength bounds caller-supplied codes.
const MaxCodeLength = 64
