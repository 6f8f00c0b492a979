// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import "errors"

var (
	// ErrInvalidInput reports structurally invalid input: malformed rows,
	// missing columns, or purchases that reference unknown products.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDegenerateScoreRange reports that every non-identity similarity has
	// the same raw score, so min-max rescaling is undefined.
	ErrDegenerateScoreRange = errors.New("degenerate score range")

	// ErrAggregateUser is returned when the aggregate pseudo-user is passed
	// where a concrete user is required.
	ErrAggregateUser = errors.New("aggregate user not supported")

	// ErrNotReady is returned when no snapshot has been built yet.
	ErrNotReady = errors.New("recommendation data not loaded")

	// ErrRebuildInProgress is returned when a rebuild is already running.
	ErrRebuildInProgress = errors.New("rebuild already in progress")
)
