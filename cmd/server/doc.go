// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

/*
Package main is the entry point for the Storelens server.

Storelens serves product recommendations and purchase analytics over a
CSV product catalog and per-user purchase histories. The catalog and
histories are loaded into DuckDB, a similarity snapshot is built from
them, and the snapshot is rebuilt on a schedule.

# Application Architecture

	RootSupervisor ("storelens")
	├── DataSupervisor ("data-layer")
	│   └── Similarity rebuild (startup, interval, POST /api/v1/similarity/rebuild)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. .env file (optional, godotenv)
 2. Configuration: Koanf v2 with defaults, YAML file and environment
 3. Logging: zerolog with JSON/console output
 4. Database: DuckDB, CSV loads behind a circuit breaker
 5. Recommendation engine and the configured algorithms
 6. Book index and similarity file store
 7. Supervisor tree: Suture v4
 8. HTTP Server

# Configuration

	CATALOG_PATH=data/product_data.csv
	PURCHASES_GLOB=data/user_data/*.csv
	BOOKS_PATH=                        # optional, enables /content/books
	BOOKS_ENCODING=utf-8               # or shift-jis
	SIMILARITY_PATH=data/similarity.csv
	RECOMMEND_RESTORE_ON_STARTUP=true  # serve an existing similarity file first
	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json

See internal/config for the full list.

# Shutdown

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up
to 10s, then any service that failed to stop is reported.

# Related Commands

	cmd/similarity   one-shot similarity CSV build
	cmd/datagen      synthetic catalog and purchase generator
*/
package main
