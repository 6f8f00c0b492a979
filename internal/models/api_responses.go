// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package models

import (
	"time"

	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/storage"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope of every HTTP response.
//
// Status is "success" with Data set, or "error" with Error set.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`

	// SnapshotVersion is the similarity snapshot that answered the request,
	// zero for endpoints that do not read one.
	SnapshotVersion int `json:"snapshot_version,omitempty"`
}

// APIError is the error body.
//
// Codes in use:
//   - VALIDATION_ERROR: a query parameter failed validation
//   - INVALID_INPUT: the engine rejected the request
//   - AGGREGATE_USER: the "ALL" pseudo-user was asked for recommendations
//   - NOT_FOUND: unknown product
//   - NOT_READY: no snapshot has been built yet
//   - REBUILD_IN_PROGRESS: another rebuild holds the lock
//   - RATE_LIMIT_EXCEEDED: too many requests
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SimilarProducts answers GET /products/{id}/similar. Product is null and
// both lists are empty for an unknown id.
type SimilarProducts struct {
	Product    *recommend.Product  `json:"product"`
	ByCategory []recommend.Product `json:"by_category"`
	ByPrice    []recommend.Product `json:"by_price"`
}

// SearchResults answers GET /products/search.
type SearchResults struct {
	Query    string              `json:"query"`
	Products []recommend.Product `json:"products"`
}

// RebuildResult answers POST /similarity/rebuild.
type RebuildResult struct {
	Status recommend.BuildStatus `json:"status"`
	File   *storage.FileInfo     `json:"file,omitempty"`
}

// SimilarityStatus answers GET /similarity/status.
type SimilarityStatus struct {
	Build   recommend.BuildStatus `json:"build"`
	Engine  recommend.Metrics     `json:"engine"`
	File    *storage.FileInfo     `json:"file,omitempty"`
	Books   int                   `json:"books_indexed"`
}

// HealthStatus answers GET /health.
type HealthStatus struct {
	Status          string    `json:"status"` // "healthy", "degraded" or "unhealthy"
	Version         string    `json:"version"`
	DatabaseOK      bool      `json:"database_connected"`
	SnapshotReady   bool      `json:"snapshot_ready"`
	SnapshotVersion int       `json:"snapshot_version"`
	LastBuiltAt     time.Time `json:"last_built_at,omitempty"`
	Uptime          float64   `json:"uptime_seconds"`
}
