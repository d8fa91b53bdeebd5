// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Ingestion Metrics
	EventsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_accepted_total",
			Help: "Total number of events accepted for processing",
		},
		[]string{"lib", "event"},
	)

	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_rejected_total",
			Help: "Total number of events rejected or dropped",
		},
		[]string{"reason"}, // "validation", "disabled", "domain", "unknown_website", "bot", "publish"
	)

	SessionTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_session_tokens_total",
			Help: "Continuation token outcomes",
		},
		[]string{"result"}, // "issued", "reused", "invalid", "expired"
	)

	// Event Bus Metrics
	BusPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_published_total",
			Help: "Total number of events published to the bus",
		},
	)

	BusPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbus_publish_failures_total",
			Help: "Total number of failed bus publishes",
		},
	)

	BusConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbus_consumed_total",
			Help: "Total number of messages handled per consumer",
		},
		[]string{"consumer", "result"},
	)

	// Store Metrics
	StoreBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_batch_size",
			Help:    "Number of events per store flush",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	StoreWriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "store_write_duration_seconds",
			Help:    "Duration of store flushes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_write_errors_total",
			Help: "Total number of failed store flushes",
		},
	)

	// Forwarder Metrics
	ForwardRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forward_requests_total",
			Help: "Total number of requests to downstream analytics backends",
		},
		[]string{"backend", "result"}, // result: "success", "error", "circuit_open"
	)

	ForwardEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forward_events_total",
			Help: "Total number of events forwarded",
		},
		[]string{"backend"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// WAL Metrics
	WALPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wal_pending_entries",
			Help: "Number of WAL entries awaiting confirmation",
		},
	)

	WALWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wal_writes_total",
			Help: "Total number of WAL writes",
		},
	)

	WALRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wal_retries_total",
			Help: "Total number of WAL replay attempts",
		},
		[]string{"result"}, // "success", "failure", "expired"
	)

	// Realtime Metrics
	RealtimeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_clients",
			Help: "Current number of connected realtime clients",
		},
	)

	RealtimeDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_dropped_messages_total",
			Help: "Messages dropped because a client was too slow",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordEventAccepted counts an accepted event.
func RecordEventAccepted(lib, event string) {
	EventsAccepted.WithLabelValues(lib, event).Inc()
}

// RecordEventRejected counts a rejected or dropped event.
func RecordEventRejected(reason string) {
	EventsRejected.WithLabelValues(reason).Inc()
}

// RecordStoreFlush records one store flush.
func RecordStoreFlush(batchSize int, duration time.Duration, err error) {
	StoreBatchSize.Observe(float64(batchSize))
	StoreWriteDuration.Observe(duration.Seconds())
	if err != nil {
		StoreWriteErrors.Inc()
	}
}

// RecordForward records one request to a downstream backend.
func RecordForward(backend, result string, events int) {
	ForwardRequests.WithLabelValues(backend, result).Inc()
	if result == "success" {
		ForwardEvents.WithLabelValues(backend).Add(float64(events))
	}
}

// RecordConsume records one bus message handled by consumer.
func RecordConsume(consumer string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	BusConsumed.WithLabelValues(consumer, result).Inc()
}
