// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/kanko/internal/platform/apperr"
)

// SQLSTATE codes the stores react to.
const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
)

// IsNoRows reports whether err is pgx's "no rows in result set".
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation, optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != codeUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// action names the failed operation ("find_series") and is kept in the cause.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if IsNoRows(err) {
		return apperr.NotFound("Resource")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			appError := apperr.Conflict("Resource already exists")
			appError.Cause = fmt.Errorf("%s: %w", action, err)
			return appError
		case codeCheckViolation:
			appError := apperr.ValidationError("Value out of range")
			appError.Cause = fmt.Errorf("%s: %w", action, err)
			return appError
		}
	}

	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}
