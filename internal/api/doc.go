// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package api provides the HTTP REST API layer for Storelens.

Key Components:

  - Router: chi route configuration and the middleware stack
  - Handler: request handlers, split by area across handlers_*.go
  - Response formatting: the {status, data, metadata, error} envelope with
    an ETag over the data payload
  - Error mapping: recommend sentinels to HTTP status and UPPER_SNAKE codes
  - Rate limiting: per-IP limits with go-chi/httprate, plus a token bucket
    (x/time/rate) throttling manual similarity rebuilds

Endpoints (/api/v1):

	GET  /health
	GET  /health/performance
	GET  /recommendations?user_id=&mode=&category=&product=&top_n=&exclude_purchased=
	GET  /products/search?q=&limit=
	GET  /products/popular?limit=
	GET  /products/{id}/similar
	GET  /categories/{category}/popular?limit=
	GET  /content/books?ids=1,2&top_n=
	GET  /content/products/{id}?top_n=
	GET  /analytics/categories|prices|intervals|monthly|top-products
	POST /similarity/rebuild
	GET  /similarity/status

Prometheus metrics are served at /metrics and the Swagger UI at
/swagger/index.html (document at /swagger/doc.json).

Error Mapping:

	VALIDATION_ERROR, INVALID_INPUT, AGGREGATE_USER   400
	RATE_LIMIT_EXCEEDED                               429
	REBUILD_IN_PROGRESS                               409
	NOT_READY, DATA_SOURCE_UNAVAILABLE, TIMEOUT       503
	INTERNAL_ERROR                                    500

Usage Example:

	handler := api.NewHandler(engine, db, shelf, rebuildSvc, cfg)
	router := api.NewRouter(handler, nil)
	srv := &http.Server{Addr: ":8080", Handler: router.SetupChi()}
*/
package api
