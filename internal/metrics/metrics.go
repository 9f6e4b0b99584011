// Visitgrid - Visitor Identity Resolution and Analytics
// Copyright 2026 Visitgrid Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/visitgrid/visitgrid

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the tracking pipeline:
// - Ingest throughput and fail-open outcomes
// - Identity-resolution decisions and session-cache efficiency
// - Reaper sweep activity
// - Database query performance (DuckDB)
// - API endpoint latency and throughput

var (
	// Ingest Metrics
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_requests_total",
			Help: "Total number of tracking ingest requests",
		},
		[]string{"outcome"}, // "ok", "swallowed", "bot"
	)

	ResolverDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolver_decisions_total",
			Help: "Total identity-resolution outcomes",
		},
		[]string{"decision"}, // "new", "returning_session", "returning_network", "in_session"
	)

	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_hits_total",
			Help: "Total number of session-handle cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_misses_total",
			Help: "Total number of session-handle cache misses",
		},
	)

	ConsentRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consent_rejections_total",
			Help: "Total enrichment writes rejected by the consent gate",
		},
		[]string{"field"}, // "location", "contact"
	)

	// Reaper Metrics
	ReaperSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaper_sweeps_total",
			Help: "Total number of idle-visit reaper sweeps",
		},
		[]string{"result"}, // "ok", "error"
	)

	ReaperDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reaper_deactivated_visits_total",
			Help: "Total visits flipped inactive by the reaper",
		},
	)

	ReaperLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reaper_last_success_timestamp",
			Help: "Unix timestamp of the last successful reaper sweep",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordIngest counts one ingest request by outcome.
func RecordIngest(outcome string) {
	IngestTotal.WithLabelValues(outcome).Inc()
}

// RecordResolver counts one identity-resolution decision.
func RecordResolver(decision string) {
	ResolverDecisions.WithLabelValues(decision).Inc()
}

// RecordReaperSweep records the result of one reaper sweep.
func RecordReaperSweep(deactivated int64, err error) {
	if err != nil {
		ReaperSweeps.WithLabelValues("error").Inc()
		return
	}
	ReaperSweeps.WithLabelValues("ok").Inc()
	ReaperDeactivated.Add(float64(deactivated))
	ReaperLastSuccess.SetToCurrentTime()
}

// RecordDBQuery records a database query duration and error state.
func RecordDBQuery(operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordAPIRequest records an API request with its duration.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
