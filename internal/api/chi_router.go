// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/storelens/internal/middleware"
)

// Router wires the handlers to their routes.
type Router struct {
	handler *Handler
	mw      *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses the middleware built from the
// handler's security config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(NewChiMiddlewareConfig(&handler.config.Security))
	}
	return &Router{handler: handler, mw: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	timeout := router.handler.config.Server.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Global middleware, applied in order
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.mw.CORS()) // global so OPTIONS preflight is answered
	r.Use(chimiddleware.Compress(5, "application/json"))
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.handler.perfMon.Middleware)

	// Health: permissive limit so monitors can poll
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/performance", router.handler.PerformanceStats)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.mw.RateLimit())
		r.Use(APISecurityHeaders())

		r.Get("/recommendations", router.handler.Recommendations)

		// Static segments before the {id} pattern
		r.Get("/products/search", router.handler.SearchProducts)
		r.Get("/products/popular", router.handler.PopularProducts)
		r.Get("/products/{id}/similar", router.handler.SimilarProducts)
		r.Get("/categories/{category}/popular", router.handler.CategoryPopular)

		r.Get("/content/books", router.handler.ContentBooks)
		r.Get("/content/products/{id}", router.handler.ContentProducts)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/categories", router.handler.AnalyticsCategories)
			r.Get("/prices", router.handler.AnalyticsPrices)
			r.Get("/intervals", router.handler.AnalyticsIntervals)
			r.Get("/monthly", router.handler.AnalyticsMonthly)
			r.Get("/top-products", router.handler.AnalyticsTopProducts)
		})

		r.Post("/similarity/rebuild", router.handler.RebuildSimilarity)
		r.Get("/similarity/status", router.handler.SimilarityStatus)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	return r
}
