// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/tomtom215/storelens/internal/recommend"
)

// Search limits.
const (
	// CloseMatchLimit is how many product names the fuzzy pass keeps.
	CloseMatchLimit = 5
	// SearchLimit caps the combined result.
	SearchLimit = 10
)

// Search finds products by fuzzy name match and by category substring.
//
// Product names are ranked by their SequenceMatcher ratio against query and
// the best CloseMatchLimit names are kept regardless of how low they score.
// Products whose category contains query (case-insensitive) follow. Results
// are deduplicated by product id and capped at limit, or SearchLimit when
// limit is not positive.
func Search(products []recommend.Product, query string, limit int) []recommend.Product {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	query = strings.TrimSpace(query)
	if query == "" || len(products) == 0 {
		return []recommend.Product{}
	}

	out := make([]recommend.Product, 0, limit)
	seen := make(map[int]struct{}, limit)
	add := func(p recommend.Product) bool {
		if _, dup := seen[p.ID]; dup {
			return len(out) < limit
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
		return len(out) < limit
	}

	for _, name := range closeMatches(products, query, CloseMatchLimit) {
		for _, p := range products {
			if p.Name == name && !add(p) {
				return out
			}
		}
	}

	needle := strings.ToLower(query)
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Category), needle) && !add(p) {
			return out
		}
	}
	return out
}

// closeMatches returns up to n distinct product names ordered by ratio
// descending, then name descending, the order difflib's get_close_matches
// yields for equal ratios.
func closeMatches(products []recommend.Product, query string, n int) []string {
	type scored struct {
		name  string
		ratio float64
	}

	target := strings.Split(query, "")
	names := make(map[string]struct{}, len(products))
	candidates := make([]scored, 0, len(products))
	for _, p := range products {
		if _, dup := names[p.Name]; dup {
			continue
		}
		names[p.Name] = struct{}{}
		m := difflib.NewMatcher(strings.Split(p.Name, ""), target)
		candidates = append(candidates, scored{name: p.Name, ratio: m.Ratio()})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ratio != candidates[j].ratio {
			return candidates[i].ratio > candidates[j].ratio
		}
		return candidates[i].name > candidates[j].name
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.name
	}
	return out
}

// Ratio returns the SequenceMatcher similarity of two strings in [0, 1],
// compared rune by rune.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
