// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"context"
	"fmt"
	"sort"
)

// BuildCoOccurrence counts, for every pair of distinct products, how many
// users bought both. Each user's history is collapsed to a set first, so
// repeat purchases do not inflate counts. Both (a,b) and (b,a) are stored.
//
// The catalog is not consulted; run ValidatePurchases beforehand when
// referential integrity matters.
func BuildCoOccurrence(ctx context.Context, purchases []Purchase) (CoOccurrence, error) {
	co := make(CoOccurrence)
	if len(purchases) == 0 {
		return co, nil
	}

	for _, items := range DistinctUserProducts(purchases) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				a, b := items[i], items[j]
				co[PairKey{A: a, B: b}]++
				co[PairKey{A: b, B: a}]++
			}
		}
	}

	return co, nil
}

// DistinctUserProducts groups purchases by user and returns each user's
// distinct product ids in ascending order.
func DistinctUserProducts(purchases []Purchase) map[int][]int {
	sets := make(map[int]map[int]struct{})
	for _, p := range purchases {
		set, ok := sets[p.UserID]
		if !ok {
			set = make(map[int]struct{})
			sets[p.UserID] = set
		}
		set[p.ProductID] = struct{}{}
	}

	out := make(map[int][]int, len(sets))
	for userID, set := range sets {
		ids := make([]int, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out[userID] = ids
	}
	return out
}

// PurchaseTotals counts purchase rows per product, repeats included.
func PurchaseTotals(purchases []Purchase) map[int]int {
	totals := make(map[int]int)
	for _, p := range purchases {
		totals[p.ProductID]++
	}
	return totals
}

// ValidatePurchases checks that every purchase references a catalog product.
// The first offending row is reported.
func ValidatePurchases(purchases []Purchase, catalog []Product) error {
	known := make(map[int]struct{}, len(catalog))
	for _, p := range catalog {
		known[p.ID] = struct{}{}
	}

	for i, p := range purchases {
		if _, ok := known[p.ProductID]; !ok {
			return fmt.Errorf("%w: purchase %d (user %d) references unknown product %d",
				ErrInvalidInput, i, p.UserID, p.ProductID)
		}
	}
	return nil
}
