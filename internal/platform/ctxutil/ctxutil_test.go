// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ctxutil_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kanko/internal/platform/ctxutil"
	"github.com/taibuivan/kanko/internal/platform/sec"
)

/*
TestContext_RequestID verifies that Request IDs can be injected and retrieved.
*/
func TestContext_RequestID(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, ctxutil.GetRequestID(ctx))

	ctx = ctxutil.WithRequestID(ctx, "req-1")
	assert.Equal(t, "req-1", ctxutil.GetRequestID(ctx))
}

/*
TestContext_SubmissionID verifies the pipeline run tag.
*/
func TestContext_SubmissionID(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, ctxutil.GetSubmissionID(ctx))

	ctx = ctxutil.WithSubmissionID(ctx, "01HZX")
	assert.Equal(t, "01HZX", ctxutil.GetSubmissionID(ctx))
}

/*
TestContext_Logger verifies that a custom logger can be stored in context.
*/
func TestContext_Logger(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	// 1. Initially should return the default logger
	assert.Equal(t, slog.Default(), ctxutil.GetLogger(ctx))

	// 2. Inject and retrieve
	ctx = ctxutil.WithLogger(ctx, logger)
	assert.Equal(t, logger, ctxutil.GetLogger(ctx))
}

/*
TestContext_Operator verifies that operator claims can be stored in context.
*/
func TestContext_Operator(t *testing.T) {
	ctx := context.Background()

	assert.Nil(t, ctxutil.GetOperator(ctx))

	ctx = ctxutil.WithOperator(ctx, &sec.AuthClaims{OperatorID: "ops-1", Role: string(sec.RoleOperator)})
	claims := ctxutil.GetOperator(ctx)

	if assert.NotNil(t, claims) {
		assert.Equal(t, "ops-1", claims.OperatorID)
		assert.Equal(t, "operator", claims.Role)
	}
}
