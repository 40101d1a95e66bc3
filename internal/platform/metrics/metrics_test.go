// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/kanko/internal/platform/metrics"
)

func TestMetrics_Recording(t *testing.T) {
	m := metrics.New()

	m.SubmissionFinished("notified", true)
	m.SubmissionFinished("committed", false)
	m.SerialIssued()
	m.SeriesProvisioned(true, true)
	m.ObserveHTTP(http.MethodPost, "/api/v1/requests", http.StatusOK, 40*time.Millisecond)

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "kanko_serials_issued_total 1")
	assert.Contains(t, recorder.Body.String(), `kanko_series_provisioned_total{outcome="partial"} 1`)
	assert.Contains(t, recorder.Body.String(), `kanko_submissions_total{outcome="failure",stage="committed"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.SubmissionFinished("failed", false)
		m.SerialIssued()
		m.ExternalCall("commit_files", true)
		m.CodeOperation("redeem", false)
	})
}
