// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/storelens/internal/recommend"
)

// BookMatch is a book ranked by content similarity.
type BookMatch struct {
	recommend.Book
	Score float64 `json:"score"`
}

type bookIndex struct {
	books    map[int]recommend.Book
	index    *ContentIndex
	loadedAt time.Time
}

// BookShelf serves content recommendations over the book corpus. Load
// swaps in a new index atomically; readers never block.
type BookShelf struct {
	cfg     ContentConfig
	current atomic.Pointer[bookIndex]
}

// NewBookShelf returns an empty shelf.
func NewBookShelf(cfg ContentConfig) *BookShelf {
	return &BookShelf{cfg: cfg}
}

// Load indexes books by author and title.
func (s *BookShelf) Load(books []recommend.Book) error {
	byID := make(map[int]recommend.Book, len(books))
	docs := make([]Document, len(books))
	for i, b := range books {
		byID[b.ID] = b
		docs[i] = Document{ID: b.ID, Text: BookFeatures(b)}
	}

	idx, err := NewContentIndex(docs, s.cfg)
	if err != nil {
		return err
	}
	s.current.Store(&bookIndex{books: byID, index: idx, loadedAt: time.Now()})
	return nil
}

// Len returns the number of indexed books.
func (s *BookShelf) Len() int {
	if cur := s.current.Load(); cur != nil {
		return cur.index.Len()
	}
	return 0
}

// LoadedAt returns when the current index was built.
func (s *BookShelf) LoadedAt() time.Time {
	if cur := s.current.Load(); cur != nil {
		return cur.loadedAt
	}
	return time.Time{}
}

// Similar returns up to topN books similar to the selected ones. Before
// the first Load it returns recommend.ErrNotReady.
func (s *BookShelf) Similar(ctx context.Context, bookIDs []int, topN int) ([]BookMatch, error) {
	cur := s.current.Load()
	if cur == nil {
		return nil, recommend.ErrNotReady
	}

	matches, err := cur.index.Similar(ctx, bookIDs, topN)
	if err != nil {
		return nil, err
	}

	out := make([]BookMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, BookMatch{Book: cur.books[m.ID], Score: m.Score})
	}
	return out, nil
}
