// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/kanko/internal/platform/request"
	"github.com/taibuivan/kanko/internal/platform/respond"
	"github.com/taibuivan/kanko/internal/platform/validate"
	"github.com/taibuivan/kanko/internal/publishing/ledger"
	"github.com/taibuivan/kanko/internal/publishing/pipeline"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// # Request Kinds

const (
	KindSeriesOpen   = "series_open"
	KindNDLSubmit    = "ndl_submit"
	KindCodeRegister = "code_register"
	KindCodeActivate = "code_activate"
)

// Notes returned by series_open.
const (
	NoteAlreadyExists  = "already_exists"
	NoteHostingPending = series.NoteHostingPending
)

// # Capabilities

// SeriesOpener opens series idempotently.
type SeriesOpener interface {
	OpenSeries(ctx context.Context, name string, config *series.ClientConfig) (*series.OpenResult, error)
}

// Submitter runs the submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, request pipeline.Request) (*pipeline.Result, error)
}

// CodeLedger registers and activates credit codes.
type CodeLedger interface {
	Register(ctx context.Context, input ledger.RegisterInput) (*ledger.Code, error)
	Activate(ctx context.Context, code string, order *string) (*ledger.Code, error)
}

// # Payloads

type seriesOpenPayload struct {
	SeriesName string               `json:"seriesName"`
	Config     *series.ClientConfig `json:"config,omitempty"`
}

type seriesOpenResponse struct {
	Success   bool   `json:"success"`
	SeriesID  string `json:"seriesId"`
	ClientID  string `json:"clientId"`
	RepoRef   string `json:"repoRef"`
	PublicURL string `json:"publicUrl,omitempty"`
	Note      string `json:"note,omitempty"`
	Warning   string `json:"warning,omitempty"`
}

type submitResponse struct {
	Success bool `json:"success"`
	*pipeline.Result
}

type codeRegisterPayload struct {
	Code     string      `json:"code"`
	Kind     ledger.Kind `json:"kind"`
	Quantity int         `json:"quantity"`
	Order    *string     `json:"order,omitempty"`
}

type codeActivatePayload struct {
	Code  string  `json:"code"`
	Order *string `json:"order,omitempty"`
}

type codeResponse struct {
	Success bool         `json:"success"`
	Code    *ledger.Code `json:"code"`
}

// # Router

// RequestHandler dispatches POST /api/v1/requests on the payload's "type".
//
// Every answer uses the flat envelope: `{"success": true, ...}` on success and
// `{"success": false, "error": "<code>", "message": ..., "step"?: ...}` on failure.
type RequestHandler struct {
	series    SeriesOpener
	submitter Submitter
	codes     CodeLedger
}

// NewRequestHandler constructs a new [RequestHandler].
func NewRequestHandler(opener SeriesOpener, submitter Submitter, codes CodeLedger) *RequestHandler {
	return &RequestHandler{series: opener, submitter: submitter, codes: codes}
}

// ServeHTTP implements [http.Handler].
func (handler *RequestHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	var body json.RawMessage
	if err := requestutil.DecodeJSON(writer, request, &body); err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		respond.Failure(writer, request, validate.ErrInvalidJSON, "")
		return
	}

	logger := ctxutil.GetLogger(request.Context()).With(slog.String("request_type", envelope.Type))
	request = request.WithContext(ctxutil.WithLogger(request.Context(), logger))

	switch envelope.Type {
	case KindSeriesOpen:
		handler.openSeries(writer, request, body)
	case KindNDLSubmit:
		handler.submit(writer, request, body)
	case KindCodeRegister:
		handler.registerCode(writer, request, body)
	case KindCodeActivate:
		handler.activateCode(writer, request, body)
	default:
		respond.Failure(writer, request, apperr.ValidationError("Unknown request type", apperr.FieldError{
			Field:   "type",
			Message: "Must be one of: series_open, ndl_submit, code_register, code_activate",
		}), "")
	}
}

func (handler *RequestHandler) openSeries(writer http.ResponseWriter, request *http.Request, body json.RawMessage) {
	var payload seriesOpenPayload
	if err := decodePayload(body, &payload); err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	opened, err := handler.series.OpenSeries(request.Context(), payload.SeriesName, payload.Config)
	if err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	response := seriesOpenResponse{
		Success:   true,
		SeriesID:  opened.Series.ID,
		ClientID:  opened.Series.ClientID,
		RepoRef:   opened.Series.RepoRef,
		PublicURL: opened.Series.PublicURL,
		Note:      opened.Series.Note,
	}
	if opened.Existing {
		response.Note = NoteAlreadyExists
	}
	if warning := apperr.As(opened.Warning); warning != nil {
		response.Warning = warning.Code
	}

	status := http.StatusCreated
	if opened.Existing {
		status = http.StatusOK
	}
	respond.JSON(writer, status, response)
}

func (handler *RequestHandler) submit(writer http.ResponseWriter, request *http.Request, body json.RawMessage) {
	var payload pipeline.Request
	if err := decodePayload(body, &payload); err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	result, err := handler.submitter.Submit(request.Context(), payload)
	if err != nil {
		respond.Failure(writer, request, err, string(pipeline.StageOf(err)))
		return
	}

	respond.JSON(writer, http.StatusOK, submitResponse{Success: true, Result: result})
}

func (handler *RequestHandler) registerCode(writer http.ResponseWriter, request *http.Request, body json.RawMessage) {
	var payload codeRegisterPayload
	if err := decodePayload(body, &payload); err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	code, err := handler.codes.Register(request.Context(), ledger.RegisterInput{
		Code:     payload.Code,
		Kind:     payload.Kind,
		Quantity: payload.Quantity,
		Order:    payload.Order,
	})
	if err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	respond.JSON(writer, http.StatusCreated, codeResponse{Success: true, Code: code})
}

func (handler *RequestHandler) activateCode(writer http.ResponseWriter, request *http.Request, body json.RawMessage) {
	var payload codeActivatePayload
	if err := decodePayload(body, &payload); err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	code, err := handler.codes.Activate(request.Context(), payload.Code, payload.Order)
	if err != nil {
		respond.Failure(writer, request, err, "")
		return
	}

	respond.JSON(writer, http.StatusOK, codeResponse{Success: true, Code: code})
}

// decodePayload unmarshals body into the kind-specific payload.
func decodePayload(body json.RawMessage, target any) error {
	if err := json.Unmarshal(body, target); err != nil {
		var typeError *json.UnmarshalTypeError
		if errors.As(err, &typeError) {
			return apperr.ValidationError("Invalid field type", apperr.FieldError{
				Field:   typeError.Field,
				Message: "Has the wrong type",
			})
		}
		return validate.ErrInvalidJSON
	}
	return nil
}
