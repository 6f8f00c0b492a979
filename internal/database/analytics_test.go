// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"
)

func userFilter(id int) AnalyticsFilter {
	return AnalyticsFilter{UserID: &id}
}

func TestBuildPurchaseWhere(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	uid := 7

	tests := []struct {
		name     string
		filter   AnalyticsFilter
		wantSQL  string
		wantArgs int
	}{
		{name: "empty", filter: AnalyticsFilter{}, wantSQL: "", wantArgs: 0},
		{name: "user", filter: AnalyticsFilter{UserID: &uid}, wantSQL: "WHERE pu.user_id = ?", wantArgs: 1},
		{
			name:     "user and range",
			filter:   AnalyticsFilter{UserID: &uid, StartDate: &start, EndDate: &end},
			wantSQL:  "WHERE pu.user_id = ? AND pu.ts >= ? AND pu.ts <= ?",
			wantArgs: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sql, args := buildPurchaseWhere(tt.filter)
			if sql != tt.wantSQL {
				t.Errorf("buildPurchaseWhere() sql = %q, want %q", sql, tt.wantSQL)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("buildPurchaseWhere() args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}

func TestCategoryCounts(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter AnalyticsFilter
		want   []CategoryCount
	}{
		{
			name:   "all users",
			filter: AnalyticsFilter{},
			want: []CategoryCount{
				{Category: "プログラミング", Products: 2},
				{Category: "データベース", Products: 1},
				{Category: "雑貨", Products: 0},
			},
		},
		{
			name:   "user 1 zero-fills unbought categories",
			filter: userFilter(1),
			want: []CategoryCount{
				{Category: "プログラミング", Products: 2},
				{Category: "データベース", Products: 0},
				{Category: "雑貨", Products: 0},
			},
		},
		{
			name:   "unknown user",
			filter: userFilter(99),
			want: []CategoryCount{
				{Category: "データベース", Products: 0},
				{Category: "プログラミング", Products: 0},
				{Category: "雑貨", Products: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.CategoryCounts(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CategoryCounts() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("CategoryCounts() = %+v, want %+v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("CategoryCounts()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPriceDistribution(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)
	ctx := context.Background()

	// Distinct purchased products are 1, 2 and 3 priced 1000, 3000, 2000.
	dist, err := db.PriceDistribution(ctx, AnalyticsFilter{}, 2)
	if err != nil {
		t.Fatalf("PriceDistribution() error = %v", err)
	}
	if dist.Products != 3 || dist.Mean != 2000 || dist.Min != 1000 || dist.Max != 3000 {
		t.Errorf("PriceDistribution() = %+v", dist)
	}
	wantBuckets := []PriceBucket{
		{Lower: 1000, Upper: 2000, Products: 1},
		{Lower: 2000, Upper: 3000, Products: 2},
	}
	if len(dist.Buckets) != len(wantBuckets) {
		t.Fatalf("Buckets = %+v, want %+v", dist.Buckets, wantBuckets)
	}
	for i := range wantBuckets {
		if dist.Buckets[i] != wantBuckets[i] {
			t.Errorf("Buckets[%d] = %+v, want %+v", i, dist.Buckets[i], wantBuckets[i])
		}
	}

	single, err := db.PriceDistribution(ctx, userFilter(2), 0)
	if err != nil {
		t.Fatalf("PriceDistribution(user 2) error = %v", err)
	}
	if single.Products != 2 || single.Mean != 1500 || len(single.Buckets) != DefaultPriceBins {
		t.Errorf("PriceDistribution(user 2) = %+v", single)
	}

	empty, err := db.PriceDistribution(ctx, userFilter(99), 0)
	if err != nil {
		t.Fatalf("PriceDistribution(unknown) error = %v", err)
	}
	if empty.Products != 0 || empty.Buckets == nil || len(empty.Buckets) != 0 {
		t.Errorf("PriceDistribution(unknown) = %+v, want empty non-nil buckets", empty)
	}
}

func TestPriceDistributionSinglePrice(t *testing.T) {
	db := setupTestDB(t)
	f := loadFixture(t, db)
	ctx := context.Background()

	writeFile(t, f.catalog, "id,name,category,price\n1,a,x,500\n2,b,x,500\n3,c,y,500\n")
	if _, err := db.LoadCatalog(ctx, f.catalog); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	dist, err := db.PriceDistribution(ctx, AnalyticsFilter{}, 5)
	if err != nil {
		t.Fatalf("PriceDistribution() error = %v", err)
	}
	if len(dist.Buckets) != 1 || dist.Buckets[0].Products != 3 {
		t.Errorf("PriceDistribution() buckets = %+v, want one bucket of 3", dist.Buckets)
	}
}

func TestPurchaseIntervals(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)
	ctx := context.Background()

	tests := []struct {
		name       string
		filter     AnalyticsFilter
		wantCount  int
		wantMean   float64
		wantMedian float64
	}{
		// user 1: 10 and 50 days; user 2: same day.
		{name: "all users", filter: AnalyticsFilter{}, wantCount: 3, wantMean: 20, wantMedian: 10},
		{name: "user 1", filter: userFilter(1), wantCount: 2, wantMean: 30, wantMedian: 30},
		{name: "user 2", filter: userFilter(2), wantCount: 1, wantMean: 0, wantMedian: 0},
		{name: "unknown user", filter: userFilter(99), wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.PurchaseIntervals(ctx, tt.filter)
			if err != nil {
				t.Fatalf("PurchaseIntervals() error = %v", err)
			}
			if got.Intervals != tt.wantCount ||
				math.Abs(got.MeanDays-tt.wantMean) > 1e-9 ||
				math.Abs(got.MedianDays-tt.wantMedian) > 1e-9 {
				t.Errorf("PurchaseIntervals() = %+v, want count=%d mean=%v median=%v",
					got, tt.wantCount, tt.wantMean, tt.wantMedian)
			}
		})
	}
}

func TestMonthlyCounts(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)
	ctx := context.Background()

	got, err := db.MonthlyCounts(ctx, AnalyticsFilter{})
	if err != nil {
		t.Fatalf("MonthlyCounts() error = %v", err)
	}
	want := []MonthlyCount{{Month: 1, Purchases: 4}, {Month: 3, Purchases: 1}}
	if len(got) != len(want) {
		t.Fatalf("MonthlyCounts() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MonthlyCounts()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err = db.MonthlyCounts(ctx, AnalyticsFilter{StartDate: &start})
	if err != nil {
		t.Fatalf("MonthlyCounts(since Feb) error = %v", err)
	}
	if len(got) != 1 || got[0].Month != 3 {
		t.Errorf("MonthlyCounts(since Feb) = %+v, want only March", got)
	}
}

func TestTopProducts(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  AnalyticsFilter
		limit   int
		wantIDs []int
		wantTop int
	}{
		{name: "all users", filter: AnalyticsFilter{}, limit: 0, wantIDs: []int{1, 2, 3}, wantTop: 3},
		{name: "limited", filter: AnalyticsFilter{}, limit: 2, wantIDs: []int{1, 2}, wantTop: 3},
		{name: "user 2", filter: userFilter(2), limit: 10, wantIDs: []int{1, 3}, wantTop: 1},
		{name: "unknown user", filter: userFilter(99), limit: 10, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.TopProducts(ctx, tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("TopProducts() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("TopProducts() = %+v, want ids %v", got, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ProductID != id {
					t.Errorf("TopProducts()[%d].ProductID = %d, want %d", i, got[i].ProductID, id)
				}
			}
			if len(got) > 0 && got[0].Purchases != tt.wantTop {
				t.Errorf("TopProducts()[0].Purchases = %d, want %d", got[0].Purchases, tt.wantTop)
			}
		})
	}
}

func TestCategoryPopularity(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)
	ctx := context.Background()

	got, err := db.CategoryPopularity(ctx, "プログラミング", 0)
	if err != nil {
		t.Fatalf("CategoryPopularity() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "Python入門" || got[0].Purchases != 3 || got[1].ProductID != 2 {
		t.Errorf("CategoryPopularity() = %+v", got)
	}

	for _, category := range []string{"雑貨", "unknown"} {
		got, err := db.CategoryPopularity(ctx, category, 10)
		if err != nil {
			t.Fatalf("CategoryPopularity(%q) error = %v", category, err)
		}
		if len(got) != 0 {
			t.Errorf("CategoryPopularity(%q) = %+v, want empty", category, got)
		}
	}
}

func TestCategories(t *testing.T) {
	db := setupTestDB(t)
	loadFixture(t, db)

	got, err := db.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if strings.Join(got, ",") != "データベース,プログラミング,雑貨" {
		t.Errorf("Categories() = %v", got)
	}
}
