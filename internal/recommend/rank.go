// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"math"
	"sort"
)

// RecommendForUser ranks products related to everything the user bought.
//
// Candidates are the similarity rows whose Name1 is the name of a purchased
// product, joined on Name2 to the catalog. A product reachable from several
// purchased names keeps its best score. Unknown users and users without
// purchases yield an empty, non-nil result.
func RecommendForUser(snap *Snapshot, userID, topN int, excludePurchased bool) []Recommendation {
	return recommendForUser(snap, userID, topN, excludePurchased, func(Product) bool { return true })
}

// RecommendForCategory is RecommendForUser restricted to one category.
// Scores are ranked identically but marked hidden.
func RecommendForCategory(snap *Snapshot, userID int, category string, topN int, excludePurchased bool) []Recommendation {
	recs := recommendForUser(snap, userID, topN, excludePurchased, func(p Product) bool {
		return p.Category == category
	})
	for i := range recs {
		recs[i].HasScore = false
	}
	return recs
}

// RecommendForProduct ranks products related to a single product name.
// No purchase exclusion is applied; the anchor itself is never returned.
func RecommendForProduct(snap *Snapshot, name string, topN int) []Recommendation {
	if snap == nil || topN <= 0 {
		return []Recommendation{}
	}

	best := make(map[int]Recommendation)
	for _, row := range snap.Related(name) {
		if row.Name2 == name {
			continue
		}
		collect(best, snap, row, func(Product) bool { return true }, nil)
	}
	return Rank(best, topN)
}

func recommendForUser(snap *Snapshot, userID, topN int, excludePurchased bool, keep func(Product) bool) []Recommendation {
	if snap == nil || topN <= 0 {
		return []Recommendation{}
	}

	ids := snap.UserProducts(userID)
	if len(ids) == 0 {
		return []Recommendation{}
	}

	var exclude map[int]struct{}
	if excludePurchased {
		exclude = snap.PurchasedSet(userID)
	}

	// Distinct purchased names; duplicates would only repeat candidates.
	names := make(map[string]struct{}, len(ids))
	best := make(map[int]Recommendation)
	for _, id := range ids {
		p, ok := snap.Product(id)
		if !ok {
			continue
		}
		if _, seen := names[p.Name]; seen {
			continue
		}
		names[p.Name] = struct{}{}

		for _, row := range snap.Related(p.Name) {
			collect(best, snap, row, keep, exclude)
		}
	}

	return Rank(best, topN)
}

// collect joins a similarity row to every catalog product named Name2 and
// keeps the best score per product.
func collect(best map[int]Recommendation, snap *Snapshot, row ProductSimilarity, keep func(Product) bool, exclude map[int]struct{}) {
	for _, p := range snap.ProductsByName(row.Name2) {
		if _, excluded := exclude[p.ID]; excluded {
			continue
		}
		if !keep(p) {
			continue
		}
		if cur, ok := best[p.ID]; ok && cur.Score >= row.Score {
			continue
		}
		best[p.ID] = Recommendation{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Score:     row.Score,
			HasScore:  true,
		}
	}
}

// Rank orders candidates by score descending, then product id ascending,
// and keeps at most topN.
func Rank(candidates map[int]Recommendation, topN int) []Recommendation {
	out := make([]Recommendation, 0, len(candidates))
	for _, r := range candidates {
		out = append(out, r)
	}
	SortRecommendations(out)
	if topN >= 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// SortRecommendations sorts by score descending with product id ascending
// as the tie-breaker.
func SortRecommendations(recs []Recommendation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		return recs[i].ProductID < recs[j].ProductID
	})
}

// Join resolves algorithm results against the snapshot catalog. Unknown
// product ids are dropped; order is preserved.
func Join(snap *Snapshot, scored []ScoredProduct) []Recommendation {
	out := make([]Recommendation, 0, len(scored))
	if snap == nil {
		return out
	}
	for _, sp := range scored {
		p, ok := snap.Product(sp.ProductID)
		if !ok {
			continue
		}
		out = append(out, Recommendation{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Score:     sp.Score,
			HasScore:  true,
		})
	}
	return out
}

// SimilarByCategory returns up to limit other products in the same
// category as productID, in catalog order.
func SimilarByCategory(snap *Snapshot, productID, limit int) []Product {
	anchor, ok := snap.Product(productID)
	if !ok {
		return []Product{}
	}
	return filterProducts(snap, limit, func(p Product) bool {
		return p.ID != anchor.ID && p.Category == anchor.Category
	})
}

// SimilarByPrice returns up to limit other products whose price is within
// band of productID's price, in catalog order.
func SimilarByPrice(snap *Snapshot, productID int, band float64, limit int) []Product {
	anchor, ok := snap.Product(productID)
	if !ok {
		return []Product{}
	}
	return filterProducts(snap, limit, func(p Product) bool {
		return p.ID != anchor.ID && math.Abs(p.Price-anchor.Price) <= band
	})
}

func filterProducts(snap *Snapshot, limit int, keep func(Product) bool) []Product {
	if limit <= 0 {
		return []Product{}
	}
	out := make([]Product, 0, limit)
	for _, p := range snap.Products() {
		if len(out) >= limit {
			break
		}
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
