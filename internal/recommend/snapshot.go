// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"sort"
	"time"
)

// Snapshot is an immutable, indexed view of the catalog, purchase history
// and similarity table. All accessors are safe for concurrent use; returned
// slices must not be modified.
type Snapshot struct {
	products   []Product
	purchases  []Purchase
	similarity []ProductSimilarity

	byID       map[int]Product
	byName     map[string][]Product
	related    map[string][]ProductSimilarity
	userItems  map[int][]int
	userSets   map[int]map[int]struct{}
	categories []string

	version int
	builtAt time.Time
}

// NewSnapshot indexes the given tables. The slices are retained, so callers
// must not modify them afterwards.
func NewSnapshot(products []Product, purchases []Purchase, similarity []ProductSimilarity, version int, builtAt time.Time) *Snapshot {
	s := &Snapshot{
		products:   products,
		purchases:  purchases,
		similarity: similarity,
		byID:       make(map[int]Product, len(products)),
		byName:     make(map[string][]Product, len(products)),
		related:    make(map[string][]ProductSimilarity),
		version:    version,
		builtAt:    builtAt,
	}

	categories := make(map[string]struct{})
	for _, p := range products {
		s.byID[p.ID] = p
		s.byName[p.Name] = append(s.byName[p.Name], p)
		categories[p.Category] = struct{}{}
	}
	for c := range categories {
		s.categories = append(s.categories, c)
	}
	sort.Strings(s.categories)

	for _, row := range similarity {
		s.related[row.Name1] = append(s.related[row.Name1], row)
	}

	s.userItems = DistinctUserProducts(purchases)
	s.userSets = make(map[int]map[int]struct{}, len(s.userItems))
	for userID, ids := range s.userItems {
		set := make(map[int]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		s.userSets[userID] = set
	}

	return s
}

// Products returns the catalog in load order.
func (s *Snapshot) Products() []Product { return s.products }

// Purchases returns the purchase history in load order.
func (s *Snapshot) Purchases() []Purchase { return s.purchases }

// Similarity returns the similarity table.
func (s *Snapshot) Similarity() []ProductSimilarity { return s.similarity }

// Categories returns the distinct categories, sorted.
func (s *Snapshot) Categories() []string { return s.categories }

// Version returns the snapshot version.
func (s *Snapshot) Version() int {
	if s == nil {
		return 0
	}
	return s.version
}

// BuiltAt returns when the snapshot was built.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Product looks up a product by id.
func (s *Snapshot) Product(id int) (Product, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// ProductsByName returns every product with the given name.
func (s *Snapshot) ProductsByName(name string) []Product {
	return s.byName[name]
}

// Related returns the similarity rows whose Name1 is name.
func (s *Snapshot) Related(name string) []ProductSimilarity {
	return s.related[name]
}

// UserProducts returns the distinct product ids bought by the user, ascending.
func (s *Snapshot) UserProducts(userID int) []int {
	return s.userItems[userID]
}

// Purchased reports whether the user bought the product.
func (s *Snapshot) Purchased(userID, productID int) bool {
	_, ok := s.userSets[userID][productID]
	return ok
}

// PurchasedSet returns the user's purchased ids as a set. Nil for unknown users.
func (s *Snapshot) PurchasedSet(userID int) map[int]struct{} {
	return s.userSets[userID]
}

// UserCount returns the number of users with at least one purchase.
func (s *Snapshot) UserCount() int { return len(s.userItems) }
