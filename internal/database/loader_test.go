// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/encoding/japanese"

	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/recommend"
)

func TestLoadCatalog(t *testing.T) {
	db := setupTestDB(t)
	f := newFixture(t)
	ctx := context.Background()

	stats, err := db.LoadCatalog(ctx, f.catalog)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if stats.Rows != 4 || stats.Files != 1 || stats.Table != "products" {
		t.Errorf("LoadCatalog() stats = %+v, want 4 rows from 1 file", stats)
	}

	products, err := db.Products(ctx)
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	want := []recommend.Product{
		{ID: 1, Name: "Python入門", Category: "プログラミング", Price: 1000},
		{ID: 2, Name: "Go言語実践", Category: "プログラミング", Price: 3000},
		{ID: 3, Name: "SQL入門", Category: "データベース", Price: 2000},
		{ID: 4, Name: "Widget, large", Category: "雑貨", Price: 5000},
	}
	if len(products) != len(want) {
		t.Fatalf("Products() = %+v, want %+v", products, want)
	}
	for i := range want {
		if products[i] != want[i] {
			t.Errorf("Products()[%d] = %+v, want %+v", i, products[i], want[i])
		}
	}

	// Reloading replaces rather than appends.
	if _, err := db.LoadCatalog(ctx, f.catalog); err != nil {
		t.Fatalf("second LoadCatalog() error = %v", err)
	}
	products, err = db.Products(ctx)
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(products) != 4 {
		t.Errorf("Products() after reload = %d rows, want 4", len(products))
	}
}

func TestLoadCatalogInvalid(t *testing.T) {
	db := setupTestDB(t)
	f := loadFixture(t, db)
	ctx := context.Background()

	tests := []struct {
		name        string
		content     string
		wantInvalid bool
	}{
		{
			name:        "duplicate id",
			content:     "product_id,name,category,price\n1,a,x,10\n1,b,x,20\n",
			wantInvalid: true,
		},
		{
			name:        "non-numeric price",
			content:     "product_id,name,category,price\n1,a,x,cheap\n",
			wantInvalid: true,
		},
		{
			name:        "missing id",
			content:     "product_id,name,category,price\n,a,x,10\n",
			wantInvalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(f.dir, "bad.csv")
			writeFile(t, path, tt.content)

			_, err := db.LoadCatalog(ctx, path)
			if err == nil {
				t.Fatal("LoadCatalog() error = nil, want error")
			}
			if got := errors.Is(err, recommend.ErrInvalidInput); got != tt.wantInvalid {
				t.Errorf("errors.Is(%v, ErrInvalidInput) = %v, want %v", err, got, tt.wantInvalid)
			}

			// A failed load leaves the previous catalog in place.
			products, err := db.Products(ctx)
			if err != nil {
				t.Fatalf("Products() error = %v", err)
			}
			if len(products) != 4 {
				t.Errorf("Products() after failed load = %d rows, want 4", len(products))
			}
		})
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.LoadCatalog(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("LoadCatalog() error = nil, want error for missing file")
	}
	if errors.Is(err, recommend.ErrInvalidInput) {
		t.Errorf("missing file reported as invalid input: %v", err)
	}
}

func TestLoadPurchases(t *testing.T) {
	db := setupTestDB(t)
	f := newFixture(t)
	ctx := context.Background()

	stats, err := db.LoadPurchases(ctx, f.glob)
	if err != nil {
		t.Fatalf("LoadPurchases() error = %v", err)
	}
	if stats.Rows != 5 || stats.Files != 2 {
		t.Errorf("LoadPurchases() stats = %+v, want 5 rows from 2 files", stats)
	}

	purchases, err := db.Purchases(ctx)
	if err != nil {
		t.Fatalf("Purchases() error = %v", err)
	}
	day := func(m time.Month, d, h, min int) time.Time {
		return time.Date(2024, m, d, h, min, 0, 0, time.UTC)
	}
	want := []recommend.Purchase{
		{UserID: 1, ProductID: 1, Timestamp: day(time.January, 1, 0, 0)},
		{UserID: 1, ProductID: 2, Timestamp: day(time.January, 11, 0, 0)},
		{UserID: 1, ProductID: 1, Timestamp: day(time.March, 1, 0, 0)},
		{UserID: 2, ProductID: 3, Timestamp: day(time.January, 5, 0, 0)},
		{UserID: 2, ProductID: 1, Timestamp: day(time.January, 5, 10, 30)},
	}
	if len(purchases) != len(want) {
		t.Fatalf("Purchases() = %+v, want %+v", purchases, want)
	}
	for i := range want {
		got := purchases[i]
		if got.UserID != want[i].UserID || got.ProductID != want[i].ProductID || !got.Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("Purchases()[%d] = %+v, want %+v", i, got, want[i])
		}
	}
}

func TestLoadPurchasesEmptyGlob(t *testing.T) {
	db := setupTestDB(t)
	f := loadFixture(t, db)
	ctx := context.Background()

	stats, err := db.LoadPurchases(ctx, filepath.Join(f.dir, "nothing", "*.csv"))
	if err != nil {
		t.Fatalf("LoadPurchases() error = %v", err)
	}
	if stats.Rows != 0 || stats.Files != 0 {
		t.Errorf("LoadPurchases() stats = %+v, want empty", stats)
	}
	purchases, err := db.Purchases(ctx)
	if err != nil {
		t.Fatalf("Purchases() error = %v", err)
	}
	if len(purchases) != 0 {
		t.Errorf("Purchases() = %d rows, want 0 after loading an empty glob", len(purchases))
	}
}

func TestLoadPurchasesInvalid(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
	}{
		{name: "unparseable timestamp", content: "user_id,product_id,timestamp\n1,1,yesterday\n"},
		{name: "non-numeric user", content: "user_id,product_id,timestamp\nALL,1,2024-01-01\n"},
		{name: "missing product", content: "user_id,product_id,timestamp\n1,,2024-01-01\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, "u.csv"), tt.content)

			_, err := db.LoadPurchases(ctx, filepath.Join(dir, "*.csv"))
			if !errors.Is(err, recommend.ErrInvalidInput) {
				t.Errorf("LoadPurchases() error = %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := db.LoadPurchases(ctx, "data/["); !errors.Is(err, recommend.ErrInvalidInput) {
		t.Errorf("LoadPurchases(bad pattern) error = %v, want ErrInvalidInput", err)
	}
}

func TestLoadBooks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "books.csv")
	writeFile(t, path, `book_id,authors,title,average_rating,ratings_count,image_url
2,J.R.R. Tolkien,The Hobbit,4.25,2530894,http://example.com/hobbit.jpg
1,,Untitled Notes,,,
`)

	stats, err := db.LoadBooks(ctx, path, config.EncodingUTF8)
	if err != nil {
		t.Fatalf("LoadBooks() error = %v", err)
	}
	if stats.Rows != 2 {
		t.Errorf("LoadBooks() rows = %d, want 2", stats.Rows)
	}

	books, err := db.Books(ctx)
	if err != nil {
		t.Fatalf("Books() error = %v", err)
	}
	want := []recommend.Book{
		{ID: 1, Title: "Untitled Notes"},
		{ID: 2, Author: "J.R.R. Tolkien", Title: "The Hobbit", AverageRating: 4.25, RatingsCount: 2530894, ImageURL: "http://example.com/hobbit.jpg"},
	}
	if len(books) != len(want) {
		t.Fatalf("Books() = %+v, want %+v", books, want)
	}
	for i := range want {
		if books[i] != want[i] {
			t.Errorf("Books()[%d] = %+v, want %+v", i, books[i], want[i])
		}
	}
}

func TestLoadBooks_ShiftJIS(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	const content = `book_id,著者,書名,平均評価,評価数,画像URL
1,夏目漱石,吾輩は猫である,4.1,1200,
2,宮沢賢治,銀河鉄道の夜,4.3,980,
`
	encoded, err := japanese.ShiftJIS.NewEncoder().String(content)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "books_sjis.csv")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		encoding string
		want     []recommend.Book
		wantErr  bool
	}{
		{
			name:     "decoded",
			encoding: config.EncodingShiftJIS,
			want: []recommend.Book{
				{ID: 1, Author: "夏目漱石", Title: "吾輩は猫である", AverageRating: 4.1, RatingsCount: 1200},
				{ID: 2, Author: "宮沢賢治", Title: "銀河鉄道の夜", AverageRating: 4.3, RatingsCount: 980},
			},
		},
		{
			name:     "read as utf-8",
			encoding: config.EncodingUTF8,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.LoadBooks(ctx, path, tt.encoding)
			if tt.wantErr {
				if !errors.Is(err, recommend.ErrInvalidInput) {
					t.Errorf("LoadBooks() error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadBooks() error = %v", err)
			}
			books, err := db.Books(ctx)
			if err != nil {
				t.Fatalf("Books() error = %v", err)
			}
			if len(books) != len(tt.want) {
				t.Fatalf("Books() = %+v, want %+v", books, tt.want)
			}
			for i := range tt.want {
				if books[i] != tt.want[i] {
					t.Errorf("Books()[%d] = %+v, want %+v", i, books[i], tt.want[i])
				}
			}
		})
	}

	// The temporary UTF-8 copy is removed after the load.
	leftovers, err := filepath.Glob(filepath.Join(os.TempDir(), "books-*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range leftovers {
		data, err := os.ReadFile(f)
		if err == nil && string(data) == content {
			t.Errorf("transcoded copy %s was not removed", f)
		}
	}

	if _, err := db.LoadBooks(ctx, filepath.Join(t.TempDir(), "missing.csv"), config.EncodingShiftJIS); err == nil {
		t.Error("LoadBooks(missing shift-jis file) error = nil")
	}
}

func TestCSVSource_ShiftJISBooks(t *testing.T) {
	db := setupTestDB(t)
	f := newFixture(t)
	ctx := context.Background()

	encoded, err := japanese.ShiftJIS.NewEncoder().String("book_id,authors,title,average_rating,ratings_count,image_url\n7,芥川龍之介,羅生門,4.0,500,\n")
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	path := filepath.Join(f.dir, "books.csv")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatal(err)
	}

	src := NewCSVSource(db, config.DataConfig{
		CatalogPath:   f.catalog,
		PurchasesGlob: f.glob,
		BooksPath:     path,
		BooksEncoding: config.EncodingShiftJIS,
	})
	books, err := src.GetBooks(ctx)
	if err != nil {
		t.Fatalf("GetBooks() error = %v", err)
	}
	if len(books) != 1 || books[0].Author != "芥川龍之介" || books[0].Title != "羅生門" {
		t.Errorf("GetBooks() = %+v", books)
	}
}

func TestCSVSource(t *testing.T) {
	db := setupTestDB(t)
	f := newFixture(t)
	ctx := context.Background()

	src := NewCSVSource(db, config.DataConfig{CatalogPath: f.catalog, PurchasesGlob: f.glob})

	products, err := src.GetProducts(ctx)
	if err != nil {
		t.Fatalf("GetProducts() error = %v", err)
	}
	if len(products) != 4 {
		t.Errorf("GetProducts() = %d products, want 4", len(products))
	}

	purchases, err := src.GetPurchases(ctx)
	if err != nil {
		t.Fatalf("GetPurchases() error = %v", err)
	}
	if len(purchases) != 5 {
		t.Errorf("GetPurchases() = %d rows, want 5", len(purchases))
	}

	// The source rereads the files, so edits show up on the next call.
	writeFile(t, filepath.Join(f.dir, "user_data", "3.suzuki.csv"), "user_id,product_id,timestamp\n3,4,2024-02-02\n")
	purchases, err = src.GetPurchases(ctx)
	if err != nil {
		t.Fatalf("GetPurchases() error = %v", err)
	}
	if len(purchases) != 6 {
		t.Errorf("GetPurchases() after new file = %d rows, want 6", len(purchases))
	}

	if src.HasBooks() {
		t.Error("HasBooks() = true without BooksPath")
	}
	if _, err := src.GetBooks(ctx); !errors.Is(err, ErrNoBooks) {
		t.Errorf("GetBooks() error = %v, want ErrNoBooks", err)
	}
}

func TestCSVSourceFeedsSimilarity(t *testing.T) {
	db := setupTestDB(t)
	f := newFixture(t)
	ctx := context.Background()

	src := NewCSVSource(db, config.DataConfig{CatalogPath: f.catalog, PurchasesGlob: f.glob})
	products, err := src.GetProducts(ctx)
	if err != nil {
		t.Fatalf("GetProducts() error = %v", err)
	}
	purchases, err := src.GetPurchases(ctx)
	if err != nil {
		t.Fatalf("GetPurchases() error = %v", err)
	}

	// Both co-purchased pairs share Python入門 (3 rows) with a single-row
	// partner, so every raw score is 1/3 and the range is degenerate.
	opts := recommend.ScoreOptions{Degenerate: recommend.DegenerateConstant, ConstantScore: 0.5}
	rows, err := recommend.BuildSimilarity(ctx, products, purchases, true, opts)
	if err != nil {
		t.Fatalf("BuildSimilarity() error = %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("BuildSimilarity() returned no rows")
	}
	for _, r := range rows {
		want := 0.5
		if r.Name1 == r.Name2 {
			want = 1
		}
		if r.Score != want {
			t.Errorf("row %+v, want score %v", r, want)
		}
	}
}
