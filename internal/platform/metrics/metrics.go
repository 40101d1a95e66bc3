// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics owns the Prometheus collectors exported on /metrics.

Every collector is registered on a private [prometheus.Registry] so tests can
build as many instances as they like. All recording methods are nil-safe: a
nil [*Metrics] turns them into no-ops.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kanko"

// Metrics groups the application collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	submissions   *prometheus.CounterVec
	serialsIssued prometheus.Counter
	provisions    *prometheus.CounterVec
	externalCalls *prometheus.CounterVec
	codes         *prometheus.CounterVec
}

// New builds and registers every collector, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),

		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
		}, []string{"method", "route"}),

		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Pipeline runs by outcome and last stage reached.",
		}, []string{"outcome", "stage"}),

		serialsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "serials_issued_total",
			Help:      "Serial numbers durably recorded in a schedule.",
		}),

		provisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_provisioned_total",
			Help:      "Series provisioning attempts by outcome.",
		}, []string{"outcome"}),

		externalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repohost_calls_total",
			Help:      "Repository host calls by operation and outcome.",
		}, []string{"operation", "outcome"}),

		codes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credit_codes_total",
			Help:      "Credit code ledger operations by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.submissions,
		m.serialsIssued,
		m.provisions,
		m.externalCalls,
		m.codes,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// # Recording

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// SubmissionFinished records a pipeline run that ended at stage.
func (m *Metrics) SubmissionFinished(stage string, ok bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome(ok), stage).Inc()
}

// SerialIssued counts a serial that reached the schedule store.
func (m *Metrics) SerialIssued() {
	if m == nil {
		return
	}
	m.serialsIssued.Inc()
}

// SeriesProvisioned records a provisioning run; degraded runs count as "partial".
func (m *Metrics) SeriesProvisioned(ok, degraded bool) {
	if m == nil {
		return
	}
	label := outcome(ok)
	if ok && degraded {
		label = "partial"
	}
	m.provisions.WithLabelValues(label).Inc()
}

// ExternalCall records one repository host operation after retries.
func (m *Metrics) ExternalCall(operation string, ok bool) {
	if m == nil {
		return
	}
	m.externalCalls.WithLabelValues(operation, outcome(ok)).Inc()
}

// CodeOperation records a credit code registration or redemption.
func (m *Metrics) CodeOperation(action string, ok bool) {
	if m == nil {
		return
	}
	m.codes.WithLabelValues(action, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
