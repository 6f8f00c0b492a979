// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package algorithms implements the trainable models that the engine
// refreshes on every snapshot rebuild.
//
// # Algorithms
//
//   - Collaborative: user-user cosine over purchase counts
//   - ContentBased: TF-IDF text similarity over product names
//   - Popularity: global purchase-count ranking
//
// The package also provides the standalone TF-IDF ContentIndex used for the
// book corpus, and fuzzy product search.
//
// # Thread Safety
//
// All algorithms are safe for concurrent use. Training acquires an
// exclusive lock while prediction uses a shared lock.
package algorithms

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/storelens/internal/recommend"
)

// BaseAlgorithm provides common functionality for all algorithms.
type BaseAlgorithm struct {
	name          string
	trained       bool
	version       int
	lastTrainedAt time.Time
	mu            sync.RWMutex
}

// NewBaseAlgorithm creates a new base algorithm with the given name.
func NewBaseAlgorithm(name string) BaseAlgorithm {
	return BaseAlgorithm{
		name: name,
	}
}

// Name returns the algorithm identifier.
func (b *BaseAlgorithm) Name() string {
	return b.name
}

// IsTrained returns whether the model has been trained.
func (b *BaseAlgorithm) IsTrained() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.trained
}

// Version returns the model version.
func (b *BaseAlgorithm) Version() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LastTrainedAt returns when the model was last trained.
func (b *BaseAlgorithm) LastTrainedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTrainedAt
}

// markTrained updates the trained state.
// Must be called while holding the training lock (acquireTrainLock).
func (b *BaseAlgorithm) markTrained() {
	b.trained = true
	b.version++
	b.lastTrainedAt = time.Now()
}

func (b *BaseAlgorithm) acquireTrainLock()   { b.mu.Lock() }
func (b *BaseAlgorithm) releaseTrainLock()   { b.mu.Unlock() }
func (b *BaseAlgorithm) acquirePredictLock() { b.mu.RLock() }
func (b *BaseAlgorithm) releasePredictLock() { b.mu.RUnlock() }

// cosineSimilarity computes cosine similarity between two dense vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// topScored sorts by score descending, then id ascending, and keeps at
// most k entries. Non-positive k returns an empty slice.
func topScored(scores map[int]float64, k int) []recommend.ScoredProduct {
	if k <= 0 {
		return []recommend.ScoredProduct{}
	}

	out := make([]recommend.ScoredProduct, 0, len(scores))
	for id, s := range scores {
		out = append(out, recommend.ScoredProduct{ProductID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Ensure all algorithms implement the interfaces the engine dispatches on.
var (
	_ recommend.UserRecommender = (*Collaborative)(nil)
	_ recommend.ItemRecommender = (*ContentBased)(nil)
	_ recommend.Ranker          = (*Popularity)(nil)
)

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
