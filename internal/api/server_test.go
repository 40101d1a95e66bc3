// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kanko/internal/api"
	"github.com/taibuivan/kanko/internal/platform/config"
	"github.com/taibuivan/kanko/internal/platform/lock"
	"github.com/taibuivan/kanko/internal/platform/metrics"
	"github.com/taibuivan/kanko/internal/platform/sec"
	"github.com/taibuivan/kanko/internal/publishing/notify"
	"github.com/taibuivan/kanko/internal/publishing/report"
	"github.com/taibuivan/kanko/internal/publishing/schedule"
	"github.com/taibuivan/kanko/internal/publishing/series"
)

// roleVerifier accepts any token naming a role.
type roleVerifier struct{}

func (roleVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if !sec.UserRole(token).Valid() {
		return nil, errors.New("unknown role")
	}
	return &sec.AuthClaims{OperatorID: "ops-" + token, Role: token}, nil
}

func newServer(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := series.NewMemoryStore()
	schedules := schedule.NewMemoryStore()
	seriesService := series.NewService(registry, schedules, nil, lock.NewMemoryLocker(), notify.NewMemoryNotifier(), series.Defaults{}, nil, logger)

	liveness, readiness := api.NewHealthHandlers([]api.HealthCheck{
		{Name: "postgres", Check: func(context.Context) error { return nil }},
	}, logger)

	server := api.NewServer(ctx, &config.Config{ServerPort: "0", Environment: "test"}, logger, roleVerifier{}, metrics.New(), api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Requests:  newRequestHandler(t, fakeOpener{}),
		Series:    series.NewHandler(seriesService),
		Reports:   report.NewHandler(report.NewService(registry, schedules, time.UTC, logger)),
	})
	return server.Handler()
}

func TestServer_Authorization(t *testing.T) {
	handler := newServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"ready is public", http.MethodGet, "/ready", "", http.StatusOK},
		{"metrics are public", http.MethodGet, "/metrics", "", http.StatusOK},
		{"requests need a token", http.MethodPost, "/api/v1/requests", "", http.StatusUnauthorized},
		{"viewers cannot mutate", http.MethodPost, "/api/v1/requests", "viewer", http.StatusForbidden},
		{"operators can mutate", http.MethodPost, "/api/v1/requests", "operator", http.StatusCreated},
		{"series need a token", http.MethodGet, "/api/v1/series", "", http.StatusUnauthorized},
		{"viewers can list series", http.MethodGet, "/api/v1/series", "viewer", http.StatusOK},
		{"unknown series", http.MethodGet, "/api/v1/series/Nobody", "viewer", http.StatusNotFound},
		{"viewers can read reports", http.MethodGet, "/api/v1/reports/monthly?month=2026-04", "viewer", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.method == http.MethodPost {
				body = strings.NewReader(`{"type":"series_open","seriesName":"Acme"}`)
			}
			request := httptest.NewRequest(tt.method, tt.path, body)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)
			assert.Equal(t, tt.want, recorder.Code, recorder.Body.String())
		})
	}
}

func TestReadiness_Degraded(t *testing.T) {
	_, readiness := api.NewHealthHandlers([]api.HealthCheck{
		{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	recorder := httptest.NewRecorder()
	readiness(recorder, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"degraded"`)
	assert.Contains(t, recorder.Body.String(), "connection refused")
}
