// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package middleware provides chi-compatible HTTP instrumentation.

  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by the matched chi route pattern so path parameters do not explode
    label cardinality
  - PerformanceMonitor: a sliding window of recent requests with per-route
    p50/p95/p99 latency, served by the health endpoints

Both read the route pattern after the handler has run, so they must be
installed with r.Use on a chi router rather than wrapped around it.

	r := chi.NewRouter()
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)
*/
package middleware
