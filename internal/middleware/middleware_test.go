// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/storelens/internal/metrics"
)

func newTestRouter(mw ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	for _, m := range mw {
		r.Use(m)
	}
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chi.URLParam(r, "id")))
	})
	r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return r
}

func TestPrometheusMetrics_LabelsByRoutePattern(t *testing.T) {
	router := newTestRouter(PrometheusMetrics)

	ok := metrics.APIRequestsTotal.WithLabelValues("GET", "/items/{id}", "200")
	broken := metrics.APIRequestsTotal.WithLabelValues("GET", "/broken", "500")
	unmatched := metrics.APIRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")
	okBefore := testutil.ToFloat64(ok)
	brokenBefore := testutil.ToFloat64(broken)
	unmatchedBefore := testutil.ToFloat64(unmatched)

	for _, path := range []string{"/items/1", "/items/2", "/broken", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(ok) - okBefore; got != 2 {
		t.Errorf("/items/{id} delta = %v, want 2 (both ids share one series)", got)
	}
	if got := testutil.ToFloat64(broken) - brokenBefore; got != 1 {
		t.Errorf("/broken delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(unmatched) - unmatchedBefore; got != 1 {
		t.Errorf("unmatched delta = %v, want 1", got)
	}
}

func TestRoutePattern_OutsideChi(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/plain", nil)
	if got := RoutePattern(req); got != unmatchedRoute {
		t.Errorf("RoutePattern() = %q, want %q", got, unmatchedRoute)
	}
}

func TestPerformanceMonitor_Middleware(t *testing.T) {
	t.Parallel()

	pm := NewPerformanceMonitor(100)
	router := newTestRouter(pm.Middleware)

	for _, path := range []string{"/items/1", "/items/2", "/items/3", "/broken"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	stats := pm.GetStats()
	if len(stats) != 2 {
		t.Fatalf("GetStats() = %+v, want 2 endpoints", stats)
	}
	if stats[0].Endpoint != "GET /items/{id}" || stats[0].RequestCount != 3 || stats[0].ErrorCount != 0 {
		t.Errorf("stats[0] = %+v", stats[0])
	}
	if stats[1].Endpoint != "GET /broken" || stats[1].ErrorCount != 1 {
		t.Errorf("stats[1] = %+v", stats[1])
	}

	recent := pm.GetRecentMetrics(1)
	if len(recent) != 1 || recent[0].Route != "/broken" || recent[0].StatusCode != http.StatusInternalServerError {
		t.Errorf("GetRecentMetrics(1) = %+v", recent)
	}
}

func TestPerformanceMonitor_WindowEviction(t *testing.T) {
	t.Parallel()

	pm := NewPerformanceMonitor(3)
	for i := int64(1); i <= 5; i++ {
		pm.RecordRequest(RequestMetrics{Route: "/r", Method: "GET", DurationMS: i, StatusCode: 200, Timestamp: time.Now()})
	}

	if pm.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pm.Len())
	}
	recent := pm.GetRecentMetrics(10)
	if len(recent) != 3 || recent[0].DurationMS != 3 || recent[2].DurationMS != 5 {
		t.Errorf("window = %+v, want durations 3..5", recent)
	}

	stats := pm.GetStats()
	if len(stats) != 1 {
		t.Fatalf("GetStats() = %+v", stats)
	}
	s := stats[0]
	if s.MinDuration != 3 || s.MaxDuration != 5 || s.AvgDuration != 4 || s.P50Duration != 4 {
		t.Errorf("stats = %+v", s)
	}
}

func TestPercentile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sorted []int64
		p      float64
		want   int64
	}{
		{name: "empty", sorted: nil, p: 0.5, want: 0},
		{name: "single", sorted: []int64{7}, p: 0.99, want: 7},
		{name: "median of five", sorted: []int64{1, 2, 3, 4, 5}, p: 0.5, want: 3},
		{name: "p95 of ten", sorted: []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, p: 0.95, want: 9},
	}

	for _, tt := range tests {
		if got := percentile(tt.sorted, tt.p); got != tt.want {
			t.Errorf("%s: percentile() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestNewPerformanceMonitor_DefaultSize(t *testing.T) {
	t.Parallel()

	if pm := NewPerformanceMonitor(0); pm.maxMetrics != 1000 {
		t.Errorf("maxMetrics = %d, want 1000", pm.maxMetrics)
	}
}
