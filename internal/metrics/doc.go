// Hanzo Analytics - Web Analytics Collection Agent
// Copyright 2026 Hanzo AI, Inc.
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/hanzoai/analytics

/*
Package metrics provides Prometheus metrics for the collection server.

Metrics are registered with promauto on the default registry and exposed at
/metrics in Prometheus text format:

	curl http://localhost:3000/metrics

# Available Metrics

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Ingestion:
  - analytics_events_accepted_total{lib,event}
  - analytics_events_rejected_total{reason}
  - analytics_session_tokens_total{result}

Event bus and storage:
  - eventbus_published_total, eventbus_publish_failures_total
  - eventbus_consumed_total{consumer,result}
  - store_batch_size, store_write_duration_seconds, store_write_errors_total
  - wal_pending_entries, wal_writes_total, wal_retries_total{result}

Forwarding:
  - forward_requests_total{backend,result}
  - forward_events_total{backend}
  - circuit_breaker_state{name}

Realtime:
  - realtime_clients, realtime_dropped_messages_total

Endpoint labels use chi route patterns, never raw paths, so label
cardinality stays bounded.
*/
package metrics
