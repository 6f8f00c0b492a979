// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package services provides the suture.Service wrappers run by the
// supervisor tree: the HTTP server and the similarity rebuild loop.
package services
