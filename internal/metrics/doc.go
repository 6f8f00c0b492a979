// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package metrics defines the Prometheus instrumentation for Storelens.

All collectors are registered with the default registry through promauto
and exposed by the API at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP:
  - api_requests_total (method, endpoint, status_code)
  - api_request_duration_seconds (method, endpoint)
  - api_active_requests
  - api_rate_limit_hits_total (endpoint)

Recommendations:
  - recommend_requests_total (mode, result)
  - recommend_request_duration_seconds (mode)
  - recommend_cache_hits_total, recommend_cache_misses_total

Similarity rebuilds:
  - similarity_rebuild_duration_seconds
  - similarity_rebuilds_total (trigger, result)
  - similarity_rebuild_last_success_timestamp
  - similarity_pairs, snapshot_products, snapshot_purchases
  - similarity_file_bytes, content_books_indexed

Data loading and resilience:
  - data_load_duration_seconds (table), data_load_errors_total (table, error_type)
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_consecutive_failures, circuit_breaker_state_transitions_total

Helpers such as RecordRecommendation and RecordRebuild keep label values
consistent across callers.
*/
package metrics
