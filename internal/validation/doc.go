// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package validation validates API request structs with
// go-playground/validator v10.
//
// A single validator instance is shared by every handler; it caches struct
// metadata and carries the custom tags:
//
//   - userid: non-negative integer, or the aggregate pseudo-user "ALL"
//   - recmode: a recommendation mode name
//   - idlist: comma-separated integer ids
//
// Field names in messages are the json names of the request fields.
//
//	type PopularRequest struct {
//	    Limit int `json:"limit" validate:"gte=0,lte=100"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    // apiErr.Code == "VALIDATION_ERROR"
//	}
package validation
