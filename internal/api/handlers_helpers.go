// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/models"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/validation"
)

// sanitizeLogValue escapes control characters so request-derived strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes response. The ETag covers the data payload only, so
// it is stable across requests while the data is unchanged. A GET whose
// If-None-Match matches gets 304 and no body.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	payload, err := json.Marshal(response.Data)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	etag := generateETag(payload)

	envelope := *response
	envelope.Data = json.RawMessage(payload)
	data, err := json.Marshal(&envelope)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("ETag", etag)

	if r != nil && r.Method == http.MethodGet && status == http.StatusOK && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// generateETag hashes data with FNV-1a.
func generateETag(data []byte) string {
	h := fnv.New32a()
	_, _ = h.Write(data)
	return fmt.Sprintf("\"%08x\"", h.Sum32())
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, data interface{}, meta models.Metadata) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   models.StatusSuccess,
		Data:     data,
		Metadata: meta,
	})
}

// respondError writes an error envelope and logs err when set.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", sanitizeLogValue(code)).
			Int("status", status).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, nil, status, &models.APIResponse{
		Status:   models.StatusError,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}

// respondValidationError writes a VALIDATION_ERROR with field details.
func respondValidationError(w http.ResponseWriter, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondJSON(w, nil, http.StatusBadRequest, &models.APIResponse{
		Status:   models.StatusError,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// errorStatus maps an error to its HTTP status and error code.
//
//	ErrInvalidInput, ErrAggregateUser, validation  400
//	ErrRebuildInProgress                           409
//	ErrNotReady, open circuit                      503
//	anything else                                  500
func errorStatus(err error) (int, string) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, validation.ErrorCode
	case errors.Is(err, recommend.ErrAggregateUser):
		return http.StatusBadRequest, "AGGREGATE_USER"
	case errors.Is(err, recommend.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, recommend.ErrRebuildInProgress):
		return http.StatusConflict, "REBUILD_IN_PROGRESS"
	case errors.Is(err, recommend.ErrNotReady):
		return http.StatusServiceUnavailable, "NOT_READY"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, "DATA_SOURCE_UNAVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// respondErr maps err with errorStatus. Client errors echo their message;
// server errors are logged and answered generically.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		respondValidationError(w, verr)
		return
	}

	status, code := errorStatus(err)
	switch {
	case status < http.StatusInternalServerError:
		respondError(w, status, code, err.Error(), nil)
	case status == http.StatusServiceUnavailable:
		logging.Ctx(r.Context()).Warn().Err(err).Str("code", code).Msg("service unavailable")
		respondError(w, status, code, err.Error(), nil)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg("request failed")
		respondError(w, status, code, "Internal server error", nil)
	}
}

// validateRequest runs the validator over a request struct.
func validateRequest(v interface{}) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}
