// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/dberr"
)

func TestWrap(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "series_active_name_key"}

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"no_rows", pgx.ErrNoRows, http.StatusNotFound},
		{"unique", fmt.Errorf("insert: %w", unique), http.StatusConflict},
		{"check", &pgconn.PgError{Code: "23514"}, http.StatusBadRequest},
		{"other", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appError := apperr.As(dberr.Wrap(tt.err, "test_action"))
			if assert.NotNil(t, appError) {
				assert.Equal(t, tt.wantStatus, appError.HTTPStatus)
			}
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "noop"))
	assert.True(t, dberr.IsUniqueViolation(unique, "series_active_name_key"))
	assert.False(t, dberr.IsUniqueViolation(unique, "other_key"))
}
