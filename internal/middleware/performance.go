// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/storelens/internal/logging"
)

// DefaultSlowThreshold is the latency above which a request is logged.
const DefaultSlowThreshold = time.Second

// RequestMetrics is one observed request.
type RequestMetrics struct {
	Route      string    `json:"route"`
	Method     string    `json:"method"`
	DurationMS int64     `json:"duration_ms"`
	StatusCode int       `json:"status_code"`
	Timestamp  time.Time `json:"timestamp"`
}

// EndpointStats aggregates the window for one method and route.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgDuration  float64 `json:"avg_duration_ms"`
	P50Duration  int64   `json:"p50_duration_ms"`
	P95Duration  int64   `json:"p95_duration_ms"`
	P99Duration  int64   `json:"p99_duration_ms"`
	MinDuration  int64   `json:"min_duration_ms"`
	MaxDuration  int64   `json:"max_duration_ms"`
}

// PerformanceMonitor keeps the last maxMetrics requests in memory.
// It is safe for concurrent use.
type PerformanceMonitor struct {
	mu            sync.RWMutex
	metrics       []RequestMetrics
	maxMetrics    int
	slowThreshold time.Duration
}

// NewPerformanceMonitor creates a monitor with a window of maxMetrics
// requests. A non-positive size selects 1000.
func NewPerformanceMonitor(maxMetrics int) *PerformanceMonitor {
	if maxMetrics <= 0 {
		maxMetrics = 1000
	}
	return &PerformanceMonitor{
		metrics:       make([]RequestMetrics, 0, maxMetrics),
		maxMetrics:    maxMetrics,
		slowThreshold: DefaultSlowThreshold,
	}
}

// RecordRequest adds a request to the window, evicting the oldest.
func (pm *PerformanceMonitor) RecordRequest(m RequestMetrics) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if len(pm.metrics) == pm.maxMetrics {
		copy(pm.metrics, pm.metrics[1:])
		pm.metrics = pm.metrics[:len(pm.metrics)-1]
	}
	pm.metrics = append(pm.metrics, m)
}

// Len returns the number of requests in the window.
func (pm *PerformanceMonitor) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.metrics)
}

// GetStats aggregates the window per endpoint, busiest first.
func (pm *PerformanceMonitor) GetStats() []EndpointStats {
	pm.mu.RLock()
	durations := make(map[string][]int64)
	errors := make(map[string]int64)
	for _, m := range pm.metrics {
		key := m.Method + " " + m.Route
		durations[key] = append(durations[key], m.DurationMS)
		if m.StatusCode >= http.StatusInternalServerError {
			errors[key]++
		}
	}
	pm.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(durations))
	for endpoint, ds := range durations {
		sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })

		var sum int64
		for _, d := range ds {
			sum += d
		}
		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(ds)),
			ErrorCount:   errors[endpoint],
			AvgDuration:  float64(sum) / float64(len(ds)),
			P50Duration:  percentile(ds, 0.50),
			P95Duration:  percentile(ds, 0.95),
			P99Duration:  percentile(ds, 0.99),
			MinDuration:  ds[0],
			MaxDuration:  ds[len(ds)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// GetRecentMetrics returns up to n of the most recent requests, oldest
// first.
func (pm *PerformanceMonitor) GetRecentMetrics(n int) []RequestMetrics {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if n > len(pm.metrics) {
		n = len(pm.metrics)
	}
	if n < 0 {
		n = 0
	}
	recent := make([]RequestMetrics, n)
	copy(recent, pm.metrics[len(pm.metrics)-n:])
	return recent
}

// Middleware records every request that passes through it and logs the
// slow ones.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := RoutePattern(r)
		pm.RecordRequest(RequestMetrics{
			Route:      route,
			Method:     r.Method,
			DurationMS: elapsed.Milliseconds(),
			StatusCode: statusOf(ww),
			Timestamp:  start,
		})

		if elapsed > pm.slowThreshold {
			logging.Ctx(r.Context()).Warn().
				Str("method", r.Method).
				Str("route", route).
				Dur("duration", elapsed).
				Msg("slow request")
		}
	})
}

// percentile picks the nearest-rank value from a sorted slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
