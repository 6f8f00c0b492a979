// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"testing"

	"github.com/tomtom215/storelens/internal/recommend"
)

func searchCatalog() []recommend.Product {
	return []recommend.Product{
		{ID: 1, Name: "Apple Juice", Category: "Drink"},
		{ID: 2, Name: "Apple Pie", Category: "Dessert"},
		{ID: 3, Name: "Car Wax", Category: "Auto"},
		{ID: 4, Name: "Orange Juice", Category: "Drink"},
		{ID: 5, Name: "Tire", Category: "Auto"},
		{ID: 6, Name: "Brake Pad", Category: "Auto"},
		{ID: 7, Name: "Mango Lassi", Category: "Drink"},
		{ID: 8, Name: "Wiper", Category: "Auto"},
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     string
		limit     int
		wantFirst int
		wantLen   int
		mustHave  []int
	}{
		{name: "exact name ranks first", query: "Apple Pie", limit: 10, wantFirst: 2, wantLen: 5},
		{name: "limit caps result", query: "Apple Pie", limit: 3, wantFirst: 2, wantLen: 3},
		{name: "category substring is case insensitive", query: "dRiNk", limit: 10, mustHave: []int{1, 4, 7}},
		{name: "non-positive limit uses default", query: "auto", limit: 0, mustHave: []int{3, 5, 6, 8}},
		{name: "blank query", query: "  ", limit: 10, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Search(searchCatalog(), tt.query, tt.limit)
			if got == nil {
				t.Fatal("Search() returned nil slice")
			}
			if tt.wantLen > 0 || tt.mustHave == nil {
				if len(got) != tt.wantLen {
					t.Errorf("Search(%q) returned %d items, want %d", tt.query, len(got), tt.wantLen)
				}
			}
			if tt.wantFirst != 0 && (len(got) == 0 || got[0].ID != tt.wantFirst) {
				t.Errorf("Search(%q) first = %+v, want id %d", tt.query, got, tt.wantFirst)
			}

			seen := make(map[int]bool)
			for _, p := range got {
				if seen[p.ID] {
					t.Errorf("Search(%q) repeated id %d", tt.query, p.ID)
				}
				seen[p.ID] = true
			}
			for _, id := range tt.mustHave {
				if !seen[id] {
					t.Errorf("Search(%q) missing id %d: %+v", tt.query, id, got)
				}
			}
			if len(got) > SearchLimit {
				t.Errorf("Search(%q) returned %d items, cap is %d", tt.query, len(got), SearchLimit)
			}
		})
	}
}

func TestCloseMatches_TiesByNameDescending(t *testing.T) {
	t.Parallel()

	products := []recommend.Product{
		{ID: 1, Name: "ab", Category: "x"},
		{ID: 2, Name: "ac", Category: "x"},
		{ID: 3, Name: "ad", Category: "x"},
		{ID: 4, Name: "a", Category: "x"},
	}

	got := closeMatches(products, "a", 3)
	want := []string{"a", "ad", "ac"}
	if len(got) != len(want) {
		t.Fatalf("closeMatches() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("closeMatches() = %v, want %v", got, want)
			break
		}
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want float64
	}{
		{a: "abc", b: "abc", want: 1},
		{a: "abc", b: "xyz", want: 0},
		{a: "abcd", b: "abxy", want: 0.5},
		{a: "りんご", b: "りんご", want: 1},
	}

	for _, tt := range tests {
		if got := Ratio(tt.a, tt.b); got != tt.want {
			t.Errorf("Ratio(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}
