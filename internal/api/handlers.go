// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/middleware"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/algorithms"
	"github.com/tomtom215/storelens/internal/recommend/storage"
)

// Version is reported by the health endpoint. It is set at build time
// with -ldflags "-X github.com/tomtom215/storelens/internal/api.Version=...".
var Version = "dev"

// AnalyticsStore is the query side of the database layer.
// *database.DB satisfies it.
type AnalyticsStore interface {
	Ping(ctx context.Context) error
	CategoryCounts(ctx context.Context, filter database.AnalyticsFilter) ([]database.CategoryCount, error)
	PriceDistribution(ctx context.Context, filter database.AnalyticsFilter, bins int) (*database.PriceDistribution, error)
	PurchaseIntervals(ctx context.Context, filter database.AnalyticsFilter) (*database.IntervalStats, error)
	MonthlyCounts(ctx context.Context, filter database.AnalyticsFilter) ([]database.MonthlyCount, error)
	TopProducts(ctx context.Context, filter database.AnalyticsFilter, limit int) ([]database.ProductCount, error)
	CategoryPopularity(ctx context.Context, category string, limit int) ([]database.ProductCount, error)
}

var _ AnalyticsStore = (*database.DB)(nil)

// BookIndex answers content similarity over the books table.
// *algorithms.BookShelf satisfies it.
type BookIndex interface {
	Similar(ctx context.Context, bookIDs []int, topN int) ([]algorithms.BookMatch, error)
	Len() int
}

var _ BookIndex = (*algorithms.BookShelf)(nil)

// Rebuilder runs a full similarity rebuild: reload, recompute, persist.
// The supervised rebuild service satisfies it.
type Rebuilder interface {
	Rebuild(ctx context.Context, trigger string) (*storage.FileInfo, error)
	LastFile() *storage.FileInfo
}

// Handler holds the dependencies of the HTTP handlers.
//
// Handler methods are split across files:
//   - handlers_recommend.go: recommendations, similar products, search, popularity
//   - handlers_content.go: TF-IDF content similarity
//   - handlers_analytics.go: DuckDB analytics
//   - handlers_similarity.go: rebuild trigger and status
//   - handlers_health.go: health and performance
type Handler struct {
	engine    *recommend.Engine
	analytics AnalyticsStore
	books     BookIndex
	rebuilder Rebuilder
	config    *config.Config

	rebuildLimiter *rate.Limiter
	perfMon        *middleware.PerformanceMonitor
	startTime      time.Time
}

// NewHandler creates the API handler. books and rebuilder may be nil; the
// endpoints that need them then answer 503.
//
// Manual rebuilds are throttled to one per
// cfg.Recommend.ManualRebuildInterval; zero disables the throttle.
func NewHandler(engine *recommend.Engine, analytics AnalyticsStore, books BookIndex, rebuilder Rebuilder, cfg *config.Config) *Handler {
	limit := rate.Inf
	if cfg.Recommend.ManualRebuildInterval > 0 {
		limit = rate.Every(cfg.Recommend.ManualRebuildInterval)
	}

	return &Handler{
		engine:         engine,
		analytics:      analytics,
		books:          books,
		rebuilder:      rebuilder,
		config:         cfg,
		rebuildLimiter: rate.NewLimiter(limit, 1),
		perfMon:        middleware.NewPerformanceMonitor(1000),
		startTime:      time.Now(),
	}
}

// PerformanceMonitor returns the monitor the router installs.
func (h *Handler) PerformanceMonitor() *middleware.PerformanceMonitor {
	return h.perfMon
}

// requestContext bounds a handler's work by the configured request timeout.
func (h *Handler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := h.config.Recommend.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
