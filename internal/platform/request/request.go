// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/ctxutil"
	"github.com/taibuivan/kanko/internal/platform/sec"
	"github.com/taibuivan/kanko/internal/platform/validate"
)

// MaxBodyBytes bounds any JSON request body.
const MaxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used to enforce the body size limit)
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target interface{}) error {
	body := http.MaxBytesReader(writer, request.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request, path-unescaped.

Series names may contain spaces and non-ASCII characters, so the raw chi
value is unescaped before use.
*/
func Param(request *http.Request, name string) string {
	raw := chi.URLParam(request, name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

/*
RequiredOperator ensures the request is authenticated and returns the operator claims.

Returns:
  - *sec.AuthClaims: The authenticated operator claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredOperator(request *http.Request) (*sec.AuthClaims, error) {
	claims := ctxutil.GetOperator(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}
