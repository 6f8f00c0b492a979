// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomtom215/storelens/internal/config"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO
// calls from many parallel tests can hang under CI resource pressure, so
// the slot is held for the whole test, not just for New.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{MaxMemory: "256MB"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

const testCatalog = `商品ID,商品名,カテゴリ,価格
1,Python入門,プログラミング,1000
2,Go言語実践,プログラミング,3000
3,SQL入門,データベース,2000
4,"Widget, large",雑貨,5000
`

// user 1 buys on Jan 1, Jan 11 and Mar 1; user 2 twice on Jan 5.
var testPurchases = map[string]string{
	"1.yamada.csv": `ユーザーID,商品ID,購入日時
1,1,2024-01-01
1,2,2024-01-11
1,1,2024-03-01
`,
	"2.sato.csv": `user_id,product_id,timestamp
2,3,2024/01/05
2,1,2024-01-05 10:30:00
`,
}

// fixture is a data directory with a catalog and purchase files.
type fixture struct {
	dir     string
	catalog string
	glob    string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		catalog: filepath.Join(dir, "product_data.csv"),
		glob:    filepath.Join(dir, "user_data", "*.csv"),
	}
	writeFile(t, f.catalog, testCatalog)
	for name, content := range testPurchases {
		writeFile(t, filepath.Join(dir, "user_data", name), content)
	}
	return f
}

// loadFixture loads the standard fixture into db.
func loadFixture(t *testing.T, db *DB) fixture {
	t.Helper()
	f := newFixture(t)
	ctx := context.Background()
	if _, err := db.LoadCatalog(ctx, f.catalog); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if _, err := db.LoadPurchases(ctx, f.glob); err != nil {
		t.Fatalf("LoadPurchases() error = %v", err)
	}
	return f
}

func TestNew(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	products, err := db.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(products) != 0 {
		t.Errorf("Products() on fresh database = %v, want empty", products)
	}
}

func TestNewFileDatabase(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "storelens.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("New(%s) error = %v", path, err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestConnectionString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		want    []string
		notWant []string
	}{
		{
			name:    "defaults",
			cfg:     config.DatabaseConfig{},
			want:    []string{":memory:?access_mode=read_write", "autoload_known_extensions=false"},
			notWant: []string{"threads=", "max_memory="},
		},
		{
			name: "tuned",
			cfg:  config.DatabaseConfig{Threads: 4, MaxMemory: "2GB"},
			want: []string{"threads=4", "max_memory=2GB"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := connectionString(":memory:", &tt.cfg)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("connectionString() = %q, missing %q", got, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("connectionString() = %q, should not contain %q", got, w)
				}
			}
		})
	}
}

func TestQuoteLiteral(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"data/a.csv":       "'data/a.csv'",
		"it's/a.csv":       "'it''s/a.csv'",
		"":                 "''",
		"データ/商品.csv": "'データ/商品.csv'",
	}
	for in, want := range tests {
		if got := quoteLiteral(in); got != want {
			t.Errorf("quoteLiteral(%q) = %q, want %q", in, got, want)
		}
	}

	if got := quoteList([]string{"a.csv", "b'.csv"}); got != "['a.csv', 'b''.csv']" {
		t.Errorf("quoteList() = %q", got)
	}
}
