// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package recommend implements the product relatedness pipeline and the
// recommendation engine built on top of it.
//
// # Pipeline
//
// Relatedness is derived purely from purchase behaviour:
//
//   - Co-occurrence: every pair of distinct products bought by the same user
//     is counted once per user, symmetrically.
//   - Similarity: each pair is scored with a Jaccard-style coefficient
//     count / (purchases(a) + purchases(b) - count), rounded to 4 digits,
//     mapped to product names, and min-max rescaled into [0, 1]. Pairs whose
//     names are equal are pinned to 1.0.
//
// The denominator uses total purchase rows (repeats included) instead of the
// number of distinct buyers. This keeps results compatible with previously
// exported similarity files; it is not a true set-union Jaccard.
//
// Each user contributes O(n^2) pairs for n distinct products, so very large
// per-user histories dominate build time.
//
// # Engine
//
// The Engine holds an immutable Snapshot of the catalog, purchase history and
// similarity table. Rebuild produces a new Snapshot and swaps it atomically;
// readers never block. Requests are dispatched by Mode:
//
//   - ModePurchaseHistory: related products for everything a user bought
//   - ModeCategory: the same, restricted to one category, score hidden
//   - ModeTextSearch: related products for a single product name
//   - ModeCollaborative: neighbour-based ranking from a registered
//     UserRecommender (see package algorithms)
//
// # Usage
//
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), logger)
//	engine.SetDataProvider(db)
//	engine.RegisterAlgorithm(algorithms.NewCollaborative(algorithms.CollaborativeConfig{}))
//	if err := engine.Rebuild(ctx); err != nil { ... }
//
//	resp, err := engine.Recommend(ctx, recommend.Request{
//	    UserID: 42,
//	    Mode:   recommend.ModePurchaseHistory,
//	    TopN:   10,
//	})
package recommend
