// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/models"
	"github.com/tomtom215/storelens/internal/recommend"
)

// TriggerManual labels rebuilds started over HTTP.
const TriggerManual = "manual"

// RebuildSimilarity handles POST /api/v1/similarity/rebuild.
//
// Manual rebuilds are throttled: a request inside the throttle window gets
// 429 with Retry-After. A rebuild already in progress gets 409.
// @Summary Rebuild the similarity table
// @Tags Similarity
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.RebuildResult}
// @Failure 409 {object} models.APIResponse
// @Failure 429 {object} models.APIResponse
// @Router /similarity/rebuild [post]
func (h *Handler) RebuildSimilarity(w http.ResponseWriter, r *http.Request) {
	if h.rebuilder == nil {
		respondErr(w, r, fmt.Errorf("%w: rebuild service not running", recommend.ErrNotReady))
		return
	}

	reservation := h.rebuildLimiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		w.Header().Set("Retry-After", strconv.Itoa(int(delay.Round(time.Second).Seconds())+1))
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			fmt.Sprintf("Manual rebuilds are limited to one every %s", h.config.Recommend.ManualRebuildInterval), nil)
		return
	}

	logging.Ctx(r.Context()).Info().Msg("manual similarity rebuild requested")

	// The rebuild outlives a client disconnect; it is bounded by the
	// engine's own rebuild timeout instead.
	file, err := h.rebuilder.Rebuild(context.WithoutCancel(r.Context()), TriggerManual)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	status := h.engine.Status()
	respondSuccess(w, r, models.RebuildResult{Status: status, File: file}, models.Metadata{
		QueryTimeMS:     status.LastBuildDurationMS,
		SnapshotVersion: status.SnapshotVersion,
	})
}

// SimilarityStatus handles GET /api/v1/similarity/status.
// @Summary Similarity table status
// @Tags Similarity
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.SimilarityStatus}
// @Router /similarity/status [get]
func (h *Handler) SimilarityStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SimilarityStatus{
		Build:  h.engine.Status(),
		Engine: h.engine.Metrics(),
	}
	if h.rebuilder != nil {
		status.File = h.rebuilder.LastFile()
	}
	if h.books != nil {
		status.Books = h.books.Len()
	}
	respondSuccess(w, r, status, models.Metadata{SnapshotVersion: status.Build.SnapshotVersion})
}
