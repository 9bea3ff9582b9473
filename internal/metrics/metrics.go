/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics defines Prometheus metrics for the tradutor client.
//
// Metric naming follows Prometheus conventions:
//   - tradutor_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestsTotal counts API requests by method, endpoint and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradutor_requests_total",
			Help: "Total API requests by method, endpoint and status.",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDurationSeconds is a histogram of API request duration.
	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradutor_request_duration_seconds",
			Help:    "Duration of API requests in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	// TokenRefreshTotal counts transparent token refresh attempts by outcome.
	TokenRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradutor_token_refresh_total",
			Help: "Total transparent token refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// SessionClearsTotal counts forced session clears after irrecoverable 401s.
	SessionClearsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradutor_session_clears_total",
			Help: "Total forced session clears after irrecoverable unauthorized responses.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDurationSeconds,
		TokenRefreshTotal,
		SessionClearsTotal,
	)
}

// ObserveRequest records one completed API request.
func ObserveRequest(method, endpoint, status string, started time.Time) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDurationSeconds.WithLabelValues(method, endpoint).Observe(time.Since(started).Seconds())
}

// RecordRefresh records a token refresh attempt. Outcome is "ok" or "failed".
func RecordRefresh(outcome string) {
	TokenRefreshTotal.WithLabelValues(outcome).Inc()
}
