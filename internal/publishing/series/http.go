// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/kanko/internal/platform/request"
	"github.com/taibuivan/kanko/internal/platform/respond"
	"github.com/taibuivan/kanko/pkg/pagination"
)

// Handler serves the read-only series endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the series routes on router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/", handler.listSeries)
	router.Get("/{name}", handler.getSeries)
	router.Get("/{name}/schedule", handler.getSchedule)
}

func (handler *Handler) listSeries(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromQuery(request.URL.Query())

	list, total, err := handler.service.List(request.Context(), params.Limit, params.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, list, pagination.NewMeta(params, total))
}

func (handler *Handler) getSeries(writer http.ResponseWriter, request *http.Request) {
	found, err := handler.service.FindActiveSeries(request.Context(), requestutil.Param(request, "name"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

func (handler *Handler) getSchedule(writer http.ResponseWriter, request *http.Request) {
	loaded, err := handler.service.Schedule(request.Context(), requestutil.Param(request, "name"))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, loaded)
}
