// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/kanko/internal/platform/respond"
)

// Handler serves the report endpoints.
type Handler struct {
	service *Service
	now     func() time.Time
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// RegisterRoutes mounts the report routes on router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/monthly", handler.getMonthly)
}

// getMonthly reports ?month=YYYY-MM, defaulting to the previous month.
func (handler *Handler) getMonthly(writer http.ResponseWriter, request *http.Request) {
	month := handler.service.PreviousMonth(handler.now())
	if raw := request.URL.Query().Get("month"); raw != "" {
		parsed, err := handler.service.ParseMonth(raw)
		if err != nil {
			respond.Error(writer, request, err)
			return
		}
		month = parsed
	}

	report, err := handler.service.Monthly(request.Context(), month)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, report)
}
