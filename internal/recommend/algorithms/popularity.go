// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"context"

	"github.com/tomtom215/storelens/internal/recommend"
)

// Popularity ranks products by their total number of purchase rows.
//
// It has no personalization and serves as a cold-start fallback for users
// with no history.
type Popularity struct {
	BaseAlgorithm

	counts map[int]float64
}

// NewPopularity creates a new popularity ranker.
func NewPopularity() *Popularity {
	return &Popularity{
		BaseAlgorithm: NewBaseAlgorithm("popularity"),
		counts:        make(map[int]float64),
	}
}

// Train counts purchases per product. Products without purchases are not
// ranked.
func (p *Popularity) Train(ctx context.Context, _ []recommend.Product, purchases []recommend.Purchase) error {
	counts := make(map[int]float64)
	for i, pu := range purchases {
		if i%1000 == 0 && ContextCancelled(ctx) {
			return ctx.Err()
		}
		counts[pu.ProductID]++
	}

	p.acquireTrainLock()
	defer p.releaseTrainLock()

	p.counts = counts
	p.markTrained()
	return nil
}

// TopK returns the k most purchased products, ties broken by product id.
func (p *Popularity) TopK(k int) []recommend.ScoredProduct {
	p.acquirePredictLock()
	defer p.releasePredictLock()

	return topScored(p.counts, k)
}

// Count returns the number of purchase rows for a product.
func (p *Popularity) Count(productID int) int {
	p.acquirePredictLock()
	defer p.releasePredictLock()

	return int(p.counts[productID])
}
