// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/metrics"
	"github.com/tomtom215/storelens/internal/models"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/algorithms"
)

// Recommendations handles GET /api/v1/recommendations.
//
// Query parameters:
//   - user_id: required except in text_search mode; "ALL" is rejected
//   - mode: purchase_history (default), category, text_search, collaborative
//   - category: required in category mode
//   - product: product name, required in text_search mode
//   - top_n: result size, default and cap come from config
//   - exclude_purchased: drop products the user already bought (default true)
// @Summary Recommend products
// @Description Ranks products for a user by purchase history, category, product name or similar users
// @Tags Recommendations
// @Produce json
// @Param user_id query string false "User id; required except in text_search mode"
// @Param mode query string false "purchase_history (default), category, text_search or collaborative"
// @Param category query string false "Category, required in category mode"
// @Param product query string false "Product name, required in text_search mode"
// @Param top_n query int false "Result size"
// @Param exclude_purchased query bool false "Drop products the user already bought" default(true)
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /recommendations [get]
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := parseRecommendationsRequest(r)
	if err != nil {
		metrics.RecordRecommendation(modeLabel(r), time.Since(start), 0, false, err)
		respondErr(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	resp, err := h.engine.Recommend(ctx, req)
	if err != nil {
		metrics.RecordRecommendation(req.Mode.String(), time.Since(start), 0, false, err)
		respondErr(w, r, err)
		return
	}
	metrics.RecordRecommendation(req.Mode.String(), time.Since(start), len(resp.Items), resp.Metadata.CacheHit, nil)

	logging.Ctx(r.Context()).Debug().
		Str("mode", req.Mode.String()).
		Int("user_id", req.UserID).
		Int("items", len(resp.Items)).
		Bool("cache_hit", resp.Metadata.CacheHit).
		Msg("recommendations served")

	respondSuccess(w, r, resp, models.Metadata{
		QueryTimeMS:     resp.Metadata.LatencyMS,
		Cached:          resp.Metadata.CacheHit,
		SnapshotVersion: resp.Metadata.SnapshotVersion,
	})
}

// modeLabel returns a bounded metric label for a request whose mode may
// not have parsed.
func modeLabel(r *http.Request) string {
	mode, err := recommend.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		return "invalid"
	}
	return mode.String()
}

// SimilarProducts handles GET /api/v1/products/{id}/similar: products in
// the same category and products within the configured price band.
// @Summary Similar products
// @Tags Products
// @Produce json
// @Param id path int true "Product id"
// @Success 200 {object} models.APIResponse{data=models.SimilarProducts}
// @Failure 400 {object} models.APIResponse
// @Router /products/{id}/similar [get]
func (h *Handler) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(chi.URLParam(r, "id"), "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}

	byCategory, byPrice, err := h.engine.SimilarProducts(id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	snap := h.engine.Snapshot()

	out := models.SimilarProducts{ByCategory: byCategory, ByPrice: byPrice}
	if p, ok := snap.Product(id); ok {
		out.Product = &p
	}
	respondSuccess(w, r, out, models.Metadata{SnapshotVersion: snap.Version()})
}

// SearchProducts handles GET /api/v1/products/search?q=&limit=. Names are
// fuzzy matched and categories substring matched.
// @Summary Search products
// @Tags Products
// @Produce json
// @Param q query string true "Search text"
// @Param limit query int false "Maximum results"
// @Success 200 {object} models.APIResponse{data=models.SearchResults}
// @Failure 400 {object} models.APIResponse
// @Router /products/search [get]
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	req := SearchRequest{Query: strings.TrimSpace(r.URL.Query().Get("q")), Limit: limit}
	if err := validateRequest(&req); err != nil {
		respondErr(w, r, err)
		return
	}

	snap := h.engine.Snapshot()
	if snap == nil {
		respondErr(w, r, recommend.ErrNotReady)
		return
	}

	products := algorithms.Search(snap.Products(), req.Query, req.Limit)
	respondSuccess(w, r, models.SearchResults{Query: req.Query, Products: products}, models.Metadata{
		QueryTimeMS:     time.Since(start).Milliseconds(),
		SnapshotVersion: snap.Version(),
	})
}

// PopularProducts handles GET /api/v1/products/popular?limit=.
// @Summary Popular products
// @Tags Products
// @Produce json
// @Param limit query int false "Maximum results"
// @Success 200 {object} models.APIResponse
// @Router /products/popular [get]
func (h *Handler) PopularProducts(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	items, err := h.engine.Popular(req.Limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, items, models.Metadata{SnapshotVersion: h.engine.Snapshot().Version()})
}

// CategoryPopular handles GET /api/v1/categories/{category}/popular?limit=:
// purchase counts per product within one category.
// @Summary Popular products in a category
// @Tags Products
// @Produce json
// @Param category path string true "Category"
// @Param limit query int false "Maximum results"
// @Success 200 {object} models.APIResponse
// @Router /categories/{category}/popular [get]
func (h *Handler) CategoryPopular(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, err := parseListRequest(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = database.DefaultTopProducts
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	category, err := url.PathUnescape(chi.URLParam(r, "category"))
	if err != nil {
		respondErr(w, r, fmt.Errorf("%w: category: %w", recommend.ErrInvalidInput, err))
		return
	}

	rows, err := h.analytics.CategoryPopularity(ctx, category, limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, rows, models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}
