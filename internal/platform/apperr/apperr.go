// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Kanko.

It provides a rich error type that bridges the gap between low-level Domain/Storage
errors and high-level responses, both for the REST surface and for the
request router that answers with a `success:false` envelope.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Taxonomy: Publication-domain codes (SERIES_NOT_FOUND, COMMIT_FAILED, ...).
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be wrapped as an [AppError] to ensure
consistent API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Publication Error Codes

const (
	CodeSeriesNotFound             = "SERIES_NOT_FOUND"
	CodeEmptyContentSet            = "EMPTY_CONTENT_SET"
	CodeScheduleUnavailable        = "SCHEDULE_UNAVAILABLE"
	CodeArtifactBuildFailed        = "ARTIFACT_BUILD_FAILED"
	CodeCommitFailed               = "COMMIT_FAILED"
	CodePublishRequestFailed       = "PUBLISH_REQUEST_FAILED"
	CodeDuplicateCodeRedemption    = "DUPLICATE_CODE_REDEMPTION"
	CodeProvisioningPartialFailure = "PROVISIONING_PARTIAL_FAILURE"
	CodeProvisioningFailed         = "PROVISIONING_FAILED"
	CodeSeriesBusy                 = "SERIES_BUSY"
)

// AppError is the canonical error type for the Kanko API.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "CONFLICT").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Series") // Returns "Series not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       "UNAUTHORIZED",
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// Forbidden creates a 403 [AppError].
func Forbidden(msg string) *AppError {
	return &AppError{
		Code:       "FORBIDDEN",
		Message:    msg,
		HTTPStatus: http.StatusForbidden,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       "CONFLICT",
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Publication Errors

// SeriesNotFound is returned when no active series carries the given name.
func SeriesNotFound(name string) *AppError {
	return &AppError{
		Code:       CodeSeriesNotFound,
		Message:    fmt.Sprintf("No active series named %q", name),
		HTTPStatus: http.StatusNotFound,
	}
}

// EmptyContentSet is returned when a submission carries no content reference.
func EmptyContentSet() *AppError {
	return &AppError{
		Code:       CodeEmptyContentSet,
		Message:    "At least one content URL is required",
		HTTPStatus: http.StatusBadRequest,
	}
}

// ScheduleUnavailable signals a provisioning inconsistency: the series exists
// but its schedule cannot be read.
func ScheduleUnavailable(cause error) *AppError {
	return &AppError{
		Code:       CodeScheduleUnavailable,
		Message:    "Publication schedule is unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// ArtifactBuildFailed wraps a failure while rendering the numbered document.
func ArtifactBuildFailed(cause error) *AppError {
	return &AppError{
		Code:       CodeArtifactBuildFailed,
		Message:    "Failed to build the publication artifact",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// CommitFailed wraps a failure while persisting the artifact or the schedule.
func CommitFailed(cause error) *AppError {
	return &AppError{
		Code:       CodeCommitFailed,
		Message:    "Failed to commit the publication",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// PublishRequestFailed wraps a failure while opening the merge request.
func PublishRequestFailed(cause error) *AppError {
	return &AppError{
		Code:       CodePublishRequestFailed,
		Message:    "Failed to request publication",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// DuplicateCodeRedemption is returned on any activation of an already used code.
func DuplicateCodeRedemption(code string) *AppError {
	return &AppError{
		Code:       CodeDuplicateCodeRedemption,
		Message:    fmt.Sprintf("Code %s has already been activated", code),
		HTTPStatus: http.StatusConflict,
	}
}

// ProvisioningPartialFailure reports a provisioning step that failed after the
// repository already exists. The series remains usable.
func ProvisioningPartialFailure(step string, cause error) *AppError {
	return &AppError{
		Code:       CodeProvisioningPartialFailure,
		Message:    fmt.Sprintf("Provisioning step %q did not complete", step),
		HTTPStatus: http.StatusAccepted,
		Cause:      cause,
	}
}

// ProvisioningFailed reports that the backing repository could not be stood up.
func ProvisioningFailed(cause error) *AppError {
	return &AppError{
		Code:       CodeProvisioningFailed,
		Message:    "Failed to provision the series repository",
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// SeriesBusy is returned when the series lock could not be taken in time.
func SeriesBusy(cause error) *AppError {
	return &AppError{
		Code:       CodeSeriesBusy,
		Message:    "Another request for this series is in progress",
		HTTPStatus: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for maintenance mode.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err's chain contains an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
