// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package models defines the HTTP response shapes shared by the API layer.

Every endpoint answers with an APIResponse envelope:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2026-01-05T12:00:00Z", "query_time_ms": 3}
	}

Error responses carry an APIError with an UPPER_SNAKE code instead of data.
Domain records (products, purchases, recommendations) live in package
recommend; the types here only group them for transport.
*/
package models
