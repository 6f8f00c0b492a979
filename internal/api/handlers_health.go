// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/models"
)

// Health states.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// Health handles GET /api/v1/health.
//
// The service is unhealthy (503) when the database does not answer a ping,
// degraded while no similarity snapshot has been built, healthy otherwise.
// @Summary Health check
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Failure 503 {object} models.APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:     HealthHealthy,
		Version:    Version,
		DatabaseOK: true,
		Uptime:     time.Since(h.startTime).Seconds(),
	}

	if h.analytics == nil {
		status.DatabaseOK = false
	} else if err := h.analytics.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("health check: database ping failed")
		status.DatabaseOK = false
	}

	if snap := h.engine.Snapshot(); snap != nil {
		status.SnapshotReady = true
		status.SnapshotVersion = snap.Version()
		status.LastBuiltAt = snap.BuiltAt()
	}

	code := http.StatusOK
	switch {
	case !status.DatabaseOK:
		status.Status = HealthUnhealthy
		code = http.StatusServiceUnavailable
	case !status.SnapshotReady:
		status.Status = HealthDegraded
	}

	respondJSON(w, r, code, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     status,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// PerformanceStats handles GET /api/v1/health/performance: per-route
// latency percentiles over the recent request window.
// @Summary Route latency percentiles
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health/performance [get]
func (h *Handler) PerformanceStats(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.perfMon.GetStats(), models.Metadata{})
}
