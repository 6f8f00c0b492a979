// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// @title Storelens API
// @version 1.0
// @description Product recommendations, search and purchase analytics over a CSV catalog and per-user purchase histories.
// @description
// @description All responses use the envelope {status, data, metadata, error}. Error codes are UPPER_SNAKE strings.
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @tag.name Core
// @tag.description Health and latency
//
// @tag.name Recommendations
// @tag.description Per-user product recommendations
//
// @tag.name Products
// @tag.description Similar, searched and popular products
//
// @tag.name Content
// @tag.description TF-IDF content similarity over books and product names
//
// @tag.name Analytics
// @tag.description Purchase analytics for one user or everyone
//
// @tag.name Similarity
// @tag.description Similarity table rebuilds and status
package main
