// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/validation"
)

// RecommendationsRequest is the query of GET /recommendations.
type RecommendationsRequest struct {
	UserID           string `json:"user_id" validate:"omitempty,userid"`
	Mode             string `json:"mode" validate:"omitempty,recmode"`
	Category         string `json:"category" validate:"omitempty,max=200"`
	Product          string `json:"product" validate:"omitempty,max=500"`
	TopN             int    `json:"top_n" validate:"gte=0,lte=1000"`
	ExcludePurchased bool   `json:"exclude_purchased"`
}

// ListRequest is the query of endpoints that return a bounded list.
type ListRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

// SearchRequest is the query of GET /products/search.
type SearchRequest struct {
	Query string `json:"q" validate:"required,max=500"`
	Limit int    `json:"limit" validate:"gte=0,lte=100"`
}

// ContentBooksRequest is the query of GET /content/books.
type ContentBooksRequest struct {
	IDs  string `json:"ids" validate:"required,idlist"`
	TopN int    `json:"top_n" validate:"gte=0,lte=1000"`
}

// AnalyticsRequest is the query shared by the analytics endpoints.
type AnalyticsRequest struct {
	UserID    string `json:"user_id" validate:"omitempty,userid"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Bins      int    `json:"bins" validate:"gte=0,lte=100"`
	Limit     int    `json:"limit" validate:"gte=0,lte=1000"`
}

// queryInt parses an optional integer query parameter. A value that is
// present but not an integer is a validation error rather than silently
// replaced by the default.
func queryInt(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", recommend.ErrInvalidInput, key, value)
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", recommend.ErrInvalidInput, key, value)
	}
	return b, nil
}

// parseRecommendationsRequest reads and validates the query and converts
// it into an engine request. The aggregate user is rejected here with
// ErrAggregateUser; text search is the only mode that needs no user.
func parseRecommendationsRequest(r *http.Request) (recommend.Request, error) {
	q := r.URL.Query()
	topN, err := queryInt(r, "top_n", 0)
	if err != nil {
		return recommend.Request{}, err
	}
	exclude, err := queryBool(r, "exclude_purchased", true)
	if err != nil {
		return recommend.Request{}, err
	}

	req := RecommendationsRequest{
		UserID:           q.Get("user_id"),
		Mode:             q.Get("mode"),
		Category:         q.Get("category"),
		Product:          q.Get("product"),
		TopN:             topN,
		ExcludePurchased: exclude,
	}
	if err := validateRequest(&req); err != nil {
		return recommend.Request{}, err
	}

	mode, err := recommend.ParseMode(req.Mode)
	if err != nil {
		return recommend.Request{}, err
	}

	var userID int
	switch {
	case strings.TrimSpace(req.UserID) != "":
		if userID, err = recommend.ParseUserID(req.UserID); err != nil {
			return recommend.Request{}, err
		}
	case mode != recommend.ModeTextSearch:
		return recommend.Request{}, fmt.Errorf("%w: user_id is required in %s mode", recommend.ErrInvalidInput, mode)
	}

	return recommend.Request{
		UserID:           userID,
		Mode:             mode,
		Category:         req.Category,
		ProductName:      req.Product,
		TopN:             req.TopN,
		ExcludePurchased: req.ExcludePurchased,
		RequestID:        r.Header.Get("X-Request-ID"),
	}, nil
}

// parseListRequest reads ?limit=.
func parseListRequest(r *http.Request) (ListRequest, error) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return ListRequest{}, err
	}
	req := ListRequest{Limit: limit}
	return req, validateRequest(&req)
}

// parseAnalyticsFilter reads ?user_id=&start_date=&end_date=. Here the
// aggregate user is allowed and means every user.
func parseAnalyticsFilter(r *http.Request) (database.AnalyticsFilter, AnalyticsRequest, error) {
	q := r.URL.Query()
	bins, err := queryInt(r, "bins", 0)
	if err != nil {
		return database.AnalyticsFilter{}, AnalyticsRequest{}, err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return database.AnalyticsFilter{}, AnalyticsRequest{}, err
	}

	req := AnalyticsRequest{
		UserID:    q.Get("user_id"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Bins:      bins,
		Limit:     limit,
	}
	if err := validateRequest(&req); err != nil {
		return database.AnalyticsFilter{}, req, err
	}

	var filter database.AnalyticsFilter
	if id := strings.TrimSpace(req.UserID); id != "" && !strings.EqualFold(id, recommend.AggregateUser) {
		userID, err := recommend.ParseUserID(id)
		if err != nil {
			return database.AnalyticsFilter{}, req, err
		}
		filter.UserID = &userID
	}
	if req.StartDate != "" {
		start, _ := time.Parse(time.DateOnly, req.StartDate)
		filter.StartDate = &start
	}
	if req.EndDate != "" {
		// Inclusive: the whole end day counts.
		end, _ := time.Parse(time.DateOnly, req.EndDate)
		end = end.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return database.AnalyticsFilter{}, req, fmt.Errorf("%w: end_date is before start_date", recommend.ErrInvalidInput)
	}
	return filter, req, nil
}

// parseContentBooksRequest reads ?ids=&top_n=.
func parseContentBooksRequest(r *http.Request) ([]int, int, error) {
	topN, err := queryInt(r, "top_n", 0)
	if err != nil {
		return nil, 0, err
	}
	req := ContentBooksRequest{IDs: r.URL.Query().Get("ids"), TopN: topN}
	if err := validateRequest(&req); err != nil {
		return nil, 0, err
	}
	ids, err := validation.ParseIDList(req.IDs)
	return ids, req.TopN, err
}

// pathID parses an integer path parameter.
func pathID(value, name string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", recommend.ErrInvalidInput, name, value)
	}
	return id, nil
}
