// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// DefaultPriceBins is the histogram resolution of PriceDistribution.
const DefaultPriceBins = 10

// DefaultTopProducts is the row limit of TopProducts and CategoryPopularity.
const DefaultTopProducts = 10

// AnalyticsFilter scopes analytics to one user and/or a time range. The
// zero value covers every purchase.
type AnalyticsFilter struct {
	UserID    *int
	StartDate *time.Time
	EndDate   *time.Time
}

// CategoryCount is the number of distinct purchased products in a category.
type CategoryCount struct {
	Category string `json:"category"`
	Products int    `json:"products"`
}

// PriceBucket is one histogram bin. Upper is exclusive except for the
// last bin.
type PriceBucket struct {
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Products int     `json:"products"`
}

// PriceDistribution summarizes the prices of the distinct purchased
// products.
type PriceDistribution struct {
	Products int           `json:"products"`
	Mean     float64       `json:"mean"`
	Min      float64       `json:"min"`
	Max      float64       `json:"max"`
	Buckets  []PriceBucket `json:"buckets"`
}

// IntervalStats summarizes the whole days between consecutive purchases
// of the same user.
type IntervalStats struct {
	Intervals  int     `json:"intervals"`
	MeanDays   float64 `json:"mean_days"`
	MedianDays float64 `json:"median_days"`
}

// MonthlyCount is the number of purchase rows in a calendar month (1-12),
// summed across years.
type MonthlyCount struct {
	Month     int `json:"month"`
	Purchases int `json:"purchases"`
}

// ProductCount is a product with its purchase row count.
type ProductCount struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Purchases int     `json:"purchases"`
}

// buildPurchaseWhere renders the filter against the purchases table
// aliased as pu.
func buildPurchaseWhere(filter AnalyticsFilter) (string, []interface{}) {
	clauses := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	if filter.UserID != nil {
		clauses = append(clauses, "pu.user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.StartDate != nil {
		clauses = append(clauses, "pu.ts >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		clauses = append(clauses, "pu.ts <= ?")
		args = append(args, *filter.EndDate)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// CategoryCounts returns every catalog category with the number of
// distinct products bought in it, zero-filled, most bought first.
func (db *DB) CategoryCounts(ctx context.Context, filter AnalyticsFilter) ([]CategoryCount, error) {
	where, args := buildPurchaseWhere(filter)
	query := `
		WITH bought AS (
			SELECT DISTINCT pu.product_id FROM purchases pu ` + where + `
		)
		SELECT p.category, COUNT(b.product_id) AS n
		FROM products p
		LEFT JOIN bought b ON b.product_id = p.product_id
		GROUP BY p.category
		ORDER BY n DESC, p.category`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category counts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	counts := make([]CategoryCount, 0, 16)
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Products); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}

// PriceDistribution returns summary statistics and an equal-width
// histogram over the prices of the distinct purchased products. bins <= 0
// selects DefaultPriceBins.
func (db *DB) PriceDistribution(ctx context.Context, filter AnalyticsFilter, bins int) (*PriceDistribution, error) {
	if bins <= 0 {
		bins = DefaultPriceBins
	}

	where, args := buildPurchaseWhere(filter)
	prices := `
		WITH bought AS (
			SELECT DISTINCT pu.product_id FROM purchases pu ` + where + `
		), prices AS (
			SELECT p.price FROM products p JOIN bought b ON b.product_id = p.product_id
		)`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	dist := &PriceDistribution{Buckets: []PriceBucket{}}
	var mean, lo, hi sql.NullFloat64
	err := db.conn.QueryRowContext(ctx, prices+`
		SELECT COUNT(*), AVG(price), MIN(price), MAX(price) FROM prices`, args...).
		Scan(&dist.Products, &mean, &lo, &hi)
	if err != nil {
		return nil, fmt.Errorf("query price stats: %w", err)
	}
	if dist.Products == 0 {
		return dist, nil
	}
	dist.Mean, dist.Min, dist.Max = mean.Float64, lo.Float64, hi.Float64

	width := (dist.Max - dist.Min) / float64(bins)
	if width == 0 {
		dist.Buckets = append(dist.Buckets, PriceBucket{Lower: dist.Min, Upper: dist.Max, Products: dist.Products})
		return dist, nil
	}

	dist.Buckets = make([]PriceBucket, bins)
	for i := range dist.Buckets {
		dist.Buckets[i].Lower = dist.Min + float64(i)*width
		dist.Buckets[i].Upper = dist.Min + float64(i+1)*width
	}
	dist.Buckets[bins-1].Upper = dist.Max

	bucketArgs := append(append([]interface{}{}, args...), dist.Min, width, bins-1)
	rows, err := db.conn.QueryContext(ctx, prices+`
		SELECT LEAST(CAST(FLOOR((price - ?) / ?) AS INTEGER), ?) AS bucket, COUNT(*)
		FROM prices
		GROUP BY bucket
		ORDER BY bucket`, bucketArgs...)
	if err != nil {
		return nil, fmt.Errorf("query price histogram: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var bucket, n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scan price bucket: %w", err)
		}
		if bucket >= 0 && bucket < bins {
			dist.Buckets[bucket].Products = n
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price histogram: %w", err)
	}
	return dist, nil
}

// PurchaseIntervals returns the mean and median whole-day gap between a
// user's consecutive purchases, pooled across the users in scope.
func (db *DB) PurchaseIntervals(ctx context.Context, filter AnalyticsFilter) (*IntervalStats, error) {
	where, args := buildPurchaseWhere(filter)
	query := `
		WITH gaps AS (
			SELECT FLOOR((epoch(pu.ts) - epoch(LAG(pu.ts) OVER (PARTITION BY pu.user_id ORDER BY pu.ts))) / 86400) AS days
			FROM purchases pu ` + where + `
		)
		SELECT COUNT(days), AVG(days), MEDIAN(days) FROM gaps WHERE days IS NOT NULL`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stats := &IntervalStats{}
	var mean, median sql.NullFloat64
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&stats.Intervals, &mean, &median); err != nil {
		return nil, fmt.Errorf("query purchase intervals: %w", err)
	}
	stats.MeanDays = mean.Float64
	stats.MedianDays = median.Float64
	return stats, nil
}

// MonthlyCounts returns purchase rows per calendar month, months without
// purchases omitted.
func (db *DB) MonthlyCounts(ctx context.Context, filter AnalyticsFilter) ([]MonthlyCount, error) {
	where, args := buildPurchaseWhere(filter)
	query := `
		SELECT CAST(month(pu.ts) AS INTEGER) AS m, COUNT(*)
		FROM purchases pu ` + where + `
		GROUP BY m
		ORDER BY m`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query monthly counts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	counts := make([]MonthlyCount, 0, 12)
	for rows.Next() {
		var c MonthlyCount
		if err := rows.Scan(&c.Month, &c.Purchases); err != nil {
			return nil, fmt.Errorf("scan monthly count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly counts: %w", err)
	}
	return counts, nil
}

// TopProducts returns the most purchased products, ties by id. limit <= 0
// selects DefaultTopProducts.
func (db *DB) TopProducts(ctx context.Context, filter AnalyticsFilter, limit int) ([]ProductCount, error) {
	where, args := buildPurchaseWhere(filter)
	return db.queryProductCounts(ctx, `
		SELECT p.product_id, p.name, p.category, p.price, COUNT(*) AS n
		FROM purchases pu
		JOIN products p ON p.product_id = pu.product_id
		`+where+`
		GROUP BY p.product_id, p.name, p.category, p.price
		ORDER BY n DESC, p.product_id
		LIMIT ?`, append(args, normalizeLimit(limit))...)
}

// CategoryPopularity ranks the products of one category by purchase count
// across every user. An unknown or unpurchased category returns empty.
func (db *DB) CategoryPopularity(ctx context.Context, category string, limit int) ([]ProductCount, error) {
	return db.queryProductCounts(ctx, `
		SELECT p.product_id, p.name, p.category, p.price, COUNT(*) AS n
		FROM purchases pu
		JOIN products p ON p.product_id = pu.product_id
		WHERE p.category = ?
		GROUP BY p.product_id, p.name, p.category, p.price
		ORDER BY n DESC, p.product_id
		LIMIT ?`, category, normalizeLimit(limit))
}

// Categories returns the distinct catalog categories in name order.
func (db *DB) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer closeWithLog(rows, "rows")

	categories := make([]string, 0, 16)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (db *DB) queryProductCounts(ctx context.Context, query string, args ...interface{}) ([]ProductCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query product counts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	counts := make([]ProductCount, 0, DefaultTopProducts)
	for rows.Next() {
		var c ProductCount
		if err := rows.Scan(&c.ProductID, &c.Name, &c.Category, &c.Price, &c.Purchases); err != nil {
			return nil, fmt.Errorf("scan product count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product counts: %w", err)
	}
	return counts, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultTopProducts
	}
	return limit
}
