// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey defines typed context keys used by middleware, handlers and
// the submission pipeline.
//
// # Safety
//
// Keys use a private, unexported type so that values stored by third-party
// packages under the same string never collide with ours.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyOperator is the context key for the authenticated operator claims ([sec.AuthClaims]).
	KeyOperator key = "operator"

	// KeyLogger is the context key for the per-request [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeySubmissionID is the context key for the pipeline submission identifier.
	KeySubmissionID key = "submission_id"
)
