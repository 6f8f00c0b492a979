// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/recommend"
)

// ErrNoBooks is returned by GetBooks when no book catalog is configured.
var ErrNoBooks = errors.New("no book catalog configured")

// Products returns the loaded catalog ordered by id.
func (db *DB) Products(ctx context.Context) ([]recommend.Product, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT product_id, name, category, price FROM products ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer closeWithLog(rows, "rows")

	products := make([]recommend.Product, 0, 256)
	for rows.Next() {
		var p recommend.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Purchases returns every loaded purchase row ordered by user then time.
func (db *DB) Purchases(ctx context.Context) ([]recommend.Purchase, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, product_id, ts FROM purchases ORDER BY user_id, ts, product_id`)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer closeWithLog(rows, "rows")

	purchases := make([]recommend.Purchase, 0, 1024)
	for rows.Next() {
		var p recommend.Purchase
		if err := rows.Scan(&p.UserID, &p.ProductID, &p.Timestamp); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return purchases, nil
}

// Books returns the loaded book catalog ordered by id.
func (db *DB) Books(ctx context.Context) ([]recommend.Book, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT book_id, author, title, average_rating, ratings_count, image_url FROM books ORDER BY book_id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var books []recommend.Book
	for rows.Next() {
		var b recommend.Book
		if err := rows.Scan(&b.ID, &b.Author, &b.Title, &b.AverageRating, &b.RatingsCount, &b.ImageURL); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

// CSVSource reloads the CSV files into DuckDB on every call and returns
// the fresh rows. It implements recommend.DataProvider.
type CSVSource struct {
	db   *DB
	data config.DataConfig
}

var _ recommend.DataProvider = (*CSVSource)(nil)

// NewCSVSource returns a source reading the files named in data.
func NewCSVSource(db *DB, data config.DataConfig) *CSVSource {
	return &CSVSource{db: db, data: data}
}

// GetProducts reloads and returns the catalog.
func (s *CSVSource) GetProducts(ctx context.Context) ([]recommend.Product, error) {
	if _, err := s.db.LoadCatalog(ctx, s.data.CatalogPath); err != nil {
		return nil, err
	}
	return s.db.Products(ctx)
}

// GetPurchases reloads and returns the purchase history.
func (s *CSVSource) GetPurchases(ctx context.Context) ([]recommend.Purchase, error) {
	if _, err := s.db.LoadPurchases(ctx, s.data.PurchasesGlob); err != nil {
		return nil, err
	}
	return s.db.Purchases(ctx)
}

// GetBooks reloads and returns the book catalog, or ErrNoBooks when
// BooksPath is unset.
func (s *CSVSource) GetBooks(ctx context.Context) ([]recommend.Book, error) {
	if s.data.BooksPath == "" {
		return nil, ErrNoBooks
	}
	if _, err := s.db.LoadBooks(ctx, s.data.BooksPath, s.data.BooksEncoding); err != nil {
		return nil, err
	}
	return s.db.Books(ctx)
}

// HasBooks reports whether a book catalog is configured.
func (s *CSVSource) HasBooks() bool {
	return s.data.BooksPath != ""
}
