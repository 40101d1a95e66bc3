// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil provides helpers for interacting with values stored in [context.Context].
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/kanko/internal/platform/ctxkey"
	"github.com/taibuivan/kanko/internal/platform/sec"
)

// # Request Tracing

// WithRequestID returns a new context with the provided request ID attached.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID retrieves the request ID from the context.
// Returns an empty string if not found.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeyRequestID).(string)
	return id
}

// WithSubmissionID tags the context with the pipeline run it belongs to.
func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeySubmissionID, id)
}

// GetSubmissionID returns the submission identifier, or "" outside a pipeline run.
func GetSubmissionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxkey.KeySubmissionID).(string)
	return id
}

// # Structured Logging

// WithLogger returns a new context with the provided logger attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it returns the global default logger.
func GetLogger(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(ctxkey.KeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		return slog.Default()
	}
	return logger
}

// # Operator Identity

// WithOperator returns a new context carrying the authenticated operator claims.
func WithOperator(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyOperator, claims)
}

// GetOperator retrieves the [*sec.AuthClaims] from the [context.Context].
// It returns nil for anonymous requests.
func GetOperator(ctx context.Context) *sec.AuthClaims {
	claims, ok := ctx.Value(ctxkey.KeyOperator).(*sec.AuthClaims)
	if !ok {
		return nil
	}
	return claims
}
