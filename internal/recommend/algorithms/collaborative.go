// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"context"
	"sort"

	"github.com/tomtom215/storelens/internal/recommend"
)

// CollaborativeConfig contains configuration for user-based collaborative
// filtering.
type CollaborativeConfig struct {
	// Neighbors is the number of most similar users consulted per request.
	// Default: 10
	Neighbors int
}

// DefaultCollaborativeConfig returns default configuration.
func DefaultCollaborativeConfig() CollaborativeConfig {
	return CollaborativeConfig{
		Neighbors: 10,
	}
}

// Collaborative implements user-based collaborative filtering.
//
// Every user is a row of purchase counts over the product columns. For a
// target user, the Neighbors most cosine-similar users are selected and
// their rows summed. Products with a positive sum are ranked by that sum.
//
// Neighbor search compares the target against every other user, so a
// request costs O(users * products).
type Collaborative struct {
	BaseAlgorithm
	config CollaborativeConfig

	// userIndex maps user id to matrix row.
	userIndex map[int]int
	userIDs   []int
	// products holds the column order of matrix.
	products []int
	matrix   [][]float64
}

// NewCollaborative creates a new collaborative filtering algorithm.
func NewCollaborative(cfg CollaborativeConfig) *Collaborative {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = 10
	}

	return &Collaborative{
		BaseAlgorithm: NewBaseAlgorithm("collaborative"),
		config:        cfg,
		userIndex:     make(map[int]int),
	}
}

// Train builds the user-product purchase count matrix.
func (c *Collaborative) Train(ctx context.Context, _ []recommend.Product, purchases []recommend.Purchase) error {
	userSet := make(map[int]struct{})
	productSet := make(map[int]struct{})
	for _, p := range purchases {
		userSet[p.UserID] = struct{}{}
		productSet[p.ProductID] = struct{}{}
	}

	userIDs := sortedKeys(userSet)
	productIDs := sortedKeys(productSet)

	userIndex := make(map[int]int, len(userIDs))
	for i, id := range userIDs {
		userIndex[id] = i
	}
	productIndex := make(map[int]int, len(productIDs))
	for i, id := range productIDs {
		productIndex[id] = i
	}

	matrix := make([][]float64, len(userIDs))
	for i := range matrix {
		if i%100 == 0 && ContextCancelled(ctx) {
			return ctx.Err()
		}
		matrix[i] = make([]float64, len(productIDs))
	}
	for _, p := range purchases {
		matrix[userIndex[p.UserID]][productIndex[p.ProductID]]++
	}

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.userIndex = userIndex
	c.userIDs = userIDs
	c.products = productIDs
	c.matrix = matrix
	c.markTrained()
	return nil
}

// RecommendForUser ranks products by the summed purchase counts of the
// user's nearest neighbors.
func (c *Collaborative) RecommendForUser(ctx context.Context, userID, topN int, exclude map[int]struct{}) ([]recommend.ScoredProduct, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	row, ok := c.userIndex[userID]
	if !ok || topN <= 0 {
		return []recommend.ScoredProduct{}, nil
	}

	type neighbor struct {
		row int
		sim float64
	}

	target := c.matrix[row]
	neighbors := make([]neighbor, 0, len(c.matrix)-1)
	for i, other := range c.matrix {
		if i == row {
			continue
		}
		if i%256 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		neighbors = append(neighbors, neighbor{row: i, sim: cosineSimilarity(target, other)})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return c.userIDs[neighbors[i].row] < c.userIDs[neighbors[j].row]
	})
	if len(neighbors) > c.config.Neighbors {
		neighbors = neighbors[:c.config.Neighbors]
	}

	sums := make([]float64, len(c.products))
	for _, n := range neighbors {
		for col, v := range c.matrix[n.row] {
			sums[col] += v
		}
	}

	scores := make(map[int]float64)
	for col, s := range sums {
		if s <= 0 {
			continue
		}
		id := c.products[col]
		if _, skip := exclude[id]; skip {
			continue
		}
		scores[id] = s
	}

	return topScored(scores, topN), nil
}

// UserSimilarity returns the cosine similarity between two users' purchase
// vectors, or 0 when either user is unknown.
func (c *Collaborative) UserSimilarity(a, b int) float64 {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	ra, okA := c.userIndex[a]
	rb, okB := c.userIndex[b]
	if !okA || !okB {
		return 0
	}
	return cosineSimilarity(c.matrix[ra], c.matrix[rb])
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
