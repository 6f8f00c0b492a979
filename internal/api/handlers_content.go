// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/storelens/internal/models"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/algorithms"
)

// ContentBooks handles GET /api/v1/content/books?ids=1,2&top_n=.
// One id ranks against that book, several rank against their centroid.
// The selected books never appear in the result.
// @Summary Similar books
// @Tags Content
// @Produce json
// @Param ids query string true "Comma-separated book ids"
// @Param top_n query int false "Result size"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /content/books [get]
func (h *Handler) ContentBooks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ids, topN, err := parseContentBooksRequest(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if h.books == nil {
		respondErr(w, r, fmt.Errorf("%w: no books table configured", recommend.ErrNotReady))
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	matches, err := h.books.Similar(ctx, ids, h.clampTopN(topN))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if matches == nil {
		matches = []algorithms.BookMatch{}
	}
	respondSuccess(w, r, matches, models.Metadata{QueryTimeMS: time.Since(start).Milliseconds()})
}

// ContentProducts handles GET /api/v1/content/products/{id}?top_n=:
// products whose names read most like the given product's.
// @Summary Products with similar names
// @Tags Content
// @Produce json
// @Param id path int true "Product id"
// @Param top_n query int false "Result size"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /content/products/{id} [get]
func (h *Handler) ContentProducts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := pathID(chi.URLParam(r, "id"), "id")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	topN, err := queryInt(r, "top_n", 0)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if topN < 0 {
		respondErr(w, r, fmt.Errorf("%w: top_n must be non-negative", recommend.ErrInvalidInput))
		return
	}

	ctx, cancel := h.requestContext(r.Context())
	defer cancel()

	items, err := h.engine.SimilarContent(ctx, []int{id}, topN)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, items, models.Metadata{
		QueryTimeMS:     time.Since(start).Milliseconds(),
		SnapshotVersion: h.engine.Snapshot().Version(),
	})
}

// clampTopN applies the configured default and cap to a content request.
func (h *Handler) clampTopN(n int) int {
	switch {
	case n <= 0:
		return h.config.Recommend.DefaultTopN
	case h.config.Recommend.MaxTopN > 0 && n > h.config.Recommend.MaxTopN:
		return h.config.Recommend.MaxTopN
	default:
		return n
	}
}
