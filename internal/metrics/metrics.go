// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/storelens/internal/recommend"
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
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
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

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Recommendation requests by mode and outcome",
		},
		[]string{"mode", "result"}, // result: ok, empty, client_error, error
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Recommendation latency by mode",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"mode"},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Recommendation responses served from cache",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Recommendation responses computed on demand",
		},
	)

	// Similarity Rebuild Metrics
	RebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "similarity_rebuild_duration_seconds",
			Help:    "Duration of similarity rebuilds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	RebuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_rebuilds_total",
			Help: "Similarity rebuilds by trigger and result",
		},
		[]string{"trigger", "result"}, // trigger: startup, scheduled, manual; result: success, failure, skipped
	)

	RebuildLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_rebuild_last_success_timestamp",
			Help: "Unix timestamp of the last successful rebuild",
		},
	)

	SimilarityPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_pairs",
			Help: "Rows in the current similarity table, identity rows included",
		},
	)

	SnapshotProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_products",
			Help: "Products in the current snapshot",
		},
	)

	SnapshotPurchases = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapshot_purchases",
			Help: "Purchase rows in the current snapshot",
		},
	)

	SimilarityFileBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_file_bytes",
			Help: "Size of the last written similarity CSV",
		},
	)

	BooksIndexed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "content_books_indexed",
			Help: "Books in the content similarity index",
		},
	)

	// Data Load Metrics
	DataLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "data_load_duration_seconds",
			Help:    "Duration of CSV loads into DuckDB",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"table"},
	)

	DataLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "data_load_errors_total",
			Help: "Failed CSV loads by table and error type",
		},
		[]string{"table", "error_type"}, // error_type: invalid_input, circuit_open, other
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
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

// RecordRecommendation records one engine call. itemCount is ignored when
// err is non-nil.
func RecordRecommendation(mode string, duration time.Duration, itemCount int, cacheHit bool, err error) {
	RecommendDuration.WithLabelValues(mode).Observe(duration.Seconds())

	result := "ok"
	switch {
	case err != nil && recommend.IsClientError(err):
		result = "client_error"
	case err != nil:
		result = "error"
	case itemCount == 0:
		result = "empty"
	}
	RecommendRequests.WithLabelValues(mode, result).Inc()

	if err != nil {
		return
	}
	if cacheHit {
		RecommendCacheHits.Inc()
	} else {
		RecommendCacheMisses.Inc()
	}
}

// RecordRebuild records a similarity rebuild. A rebuild rejected because
// another one is running counts as skipped.
func RecordRebuild(trigger string, duration time.Duration, err error) {
	switch {
	case err == nil:
		RebuildDuration.Observe(duration.Seconds())
		RebuildsTotal.WithLabelValues(trigger, "success").Inc()
		RebuildLastSuccess.Set(float64(time.Now().Unix()))
	case errors.Is(err, recommend.ErrRebuildInProgress):
		RebuildsTotal.WithLabelValues(trigger, "skipped").Inc()
	default:
		RebuildDuration.Observe(duration.Seconds())
		RebuildsTotal.WithLabelValues(trigger, "failure").Inc()
	}
}

// UpdateSnapshotGauges publishes the size of a freshly swapped snapshot.
func UpdateSnapshotGauges(products, purchases, pairs int) {
	SnapshotProducts.Set(float64(products))
	SnapshotPurchases.Set(float64(purchases))
	SimilarityPairs.Set(float64(pairs))
}

// RecordDataLoad records a CSV load. errorType is only used when err is
// non-nil.
func RecordDataLoad(table string, duration time.Duration, err error, errorType string) {
	DataLoadDuration.WithLabelValues(table).Observe(duration.Seconds())
	if err != nil {
		DataLoadErrors.WithLabelValues(table, errorType).Inc()
	}
}
