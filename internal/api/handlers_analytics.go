// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/models"
)

// analyticsQuery runs one filtered analytics query and writes its result.
// Every analytics endpoint accepts user_id (a user or "ALL"), start_date
// and end_date (YYYY-MM-DD, inclusive).
func (h *Handler) analyticsQuery(w http.ResponseWriter, r *http.Request, query func(ctx context.Context, filter database.AnalyticsFilter, req AnalyticsRequest) (interface{}, error)) {
	start := time.Now()

	filter, req, err := parseAnalyticsFilter(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	data, err := query(ctx, filter, req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, data, models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// AnalyticsCategories handles GET /api/v1/analytics/categories: distinct
// purchased products per category, every category listed.
// @Summary Purchases per category
// @Tags Analytics
// @Produce json
// @Param user_id query string false "User id or ALL"
// @Param start_date query string false "Inclusive start, YYYY-MM-DD"
// @Param end_date query string false "Inclusive end, YYYY-MM-DD"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /analytics/categories [get]
func (h *Handler) AnalyticsCategories(w http.ResponseWriter, r *http.Request) {
	h.analyticsQuery(w, r, func(ctx context.Context, filter database.AnalyticsFilter, _ AnalyticsRequest) (interface{}, error) {
		return h.analytics.CategoryCounts(ctx, filter)
	})
}

// AnalyticsPrices handles GET /api/v1/analytics/prices?bins=: price
// summary and histogram of the purchased products.
// @Summary Price distribution
// @Tags Analytics
// @Produce json
// @Param user_id query string false "User id or ALL"
// @Param start_date query string false "Inclusive start, YYYY-MM-DD"
// @Param end_date query string false "Inclusive end, YYYY-MM-DD"
// @Param bins query int false "Histogram bins"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /analytics/prices [get]
func (h *Handler) AnalyticsPrices(w http.ResponseWriter, r *http.Request) {
	h.analyticsQuery(w, r, func(ctx context.Context, filter database.AnalyticsFilter, req AnalyticsRequest) (interface{}, error) {
		bins := req.Bins
		if bins == 0 {
			bins = database.DefaultPriceBins
		}
		return h.analytics.PriceDistribution(ctx, filter, bins)
	})
}

// AnalyticsIntervals handles GET /api/v1/analytics/intervals: whole days
// between consecutive purchases of each user.
// @Summary Days between purchases
// @Tags Analytics
// @Produce json
// @Param user_id query string false "User id or ALL"
// @Param start_date query string false "Inclusive start, YYYY-MM-DD"
// @Param end_date query string false "Inclusive end, YYYY-MM-DD"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /analytics/intervals [get]
func (h *Handler) AnalyticsIntervals(w http.ResponseWriter, r *http.Request) {
	h.analyticsQuery(w, r, func(ctx context.Context, filter database.AnalyticsFilter, _ AnalyticsRequest) (interface{}, error) {
		return h.analytics.PurchaseIntervals(ctx, filter)
	})
}

// AnalyticsMonthly handles GET /api/v1/analytics/monthly: purchases per
// calendar month (1-12).
// @Summary Purchases per month
// @Tags Analytics
// @Produce json
// @Param user_id query string false "User id or ALL"
// @Param start_date query string false "Inclusive start, YYYY-MM-DD"
// @Param end_date query string false "Inclusive end, YYYY-MM-DD"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /analytics/monthly [get]
func (h *Handler) AnalyticsMonthly(w http.ResponseWriter, r *http.Request) {
	h.analyticsQuery(w, r, func(ctx context.Context, filter database.AnalyticsFilter, _ AnalyticsRequest) (interface{}, error) {
		return h.analytics.MonthlyCounts(ctx, filter)
	})
}

// AnalyticsTopProducts handles GET /api/v1/analytics/top-products?limit=.
// @Summary Most purchased products
// @Tags Analytics
// @Produce json
// @Param user_id query string false "User id or ALL"
// @Param start_date query string false "Inclusive start, YYYY-MM-DD"
// @Param end_date query string false "Inclusive end, YYYY-MM-DD"
// @Param limit query int false "Maximum results"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /analytics/top-products [get]
func (h *Handler) AnalyticsTopProducts(w http.ResponseWriter, r *http.Request) {
	h.analyticsQuery(w, r, func(ctx context.Context, filter database.AnalyticsFilter, req AnalyticsRequest) (interface{}, error) {
		limit := req.Limit
		if limit == 0 {
			limit = database.DefaultTopProducts
		}
		return h.analytics.TopProducts(ctx, filter, limit)
	})
}
