// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package datagen

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/storelens/internal/recommend"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Catalog = Catalog{
		"drinks": {"Green Tea", "Black Tea"},
		"snacks": {"Rice Cracker"},
	}
	cfg.Users = 5
	cfg.MinPurchases = 2
	cfg.MaxPurchases = 4
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty catalog", mutate: func(c *Config) { c.Catalog = nil }},
		{name: "inverted prices", mutate: func(c *Config) { c.MinPrice, c.MaxPrice = 10, 5 }},
		{name: "negative price", mutate: func(c *Config) { c.MinPrice = -1 }},
		{name: "no users", mutate: func(c *Config) { c.Users = 0 }},
		{name: "zero purchases", mutate: func(c *Config) { c.MinPurchases = 0 }},
		{name: "inverted purchases", mutate: func(c *Config) { c.MinPurchases, c.MaxPurchases = 5, 4 }},
		{name: "no days", mutate: func(c *Config) { c.Days = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, recommend.ErrInvalidInput) {
				t.Errorf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestGenerator_Products(t *testing.T) {
	t.Parallel()

	g, err := New(smallConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	products := g.Products()

	want := []struct {
		id       int
		name     string
		category string
	}{
		{1, "Green Tea", "drinks"},
		{2, "Black Tea", "drinks"},
		{3, "Rice Cracker", "snacks"},
	}
	if len(products) != len(want) {
		t.Fatalf("len(products) = %d, want %d", len(products), len(want))
	}
	for i, w := range want {
		p := products[i]
		if p.ID != w.id || p.Name != w.name || p.Category != w.category {
			t.Errorf("products[%d] = %+v, want %d %s %s", i, p, w.id, w.name, w.category)
		}
		if p.Price < 1000 || p.Price > 10000 || p.Price != float64(int(p.Price)) {
			t.Errorf("products[%d].Price = %v, want a whole number in [1000, 10000]", i, p.Price)
		}
	}
}

func TestGenerator_Purchases(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	products := g.Products()
	histories := g.Purchases(products)

	if len(histories) != cfg.Users {
		t.Fatalf("len(histories) = %d, want %d", len(histories), cfg.Users)
	}
	first := cfg.Start.AddDate(0, 0, 1)
	last := cfg.Start.AddDate(0, 0, cfg.Days)
	for user := 1; user <= cfg.Users; user++ {
		h := histories[user]
		if len(h) < cfg.MinPurchases || len(h) > cfg.MaxPurchases {
			t.Errorf("user %d has %d purchases, want [%d, %d]", user, len(h), cfg.MinPurchases, cfg.MaxPurchases)
		}
		for i, p := range h {
			if p.UserID != user {
				t.Errorf("user %d purchase %d has UserID %d", user, i, p.UserID)
			}
			if p.ProductID < 1 || p.ProductID > len(products) {
				t.Errorf("user %d purchase %d has unknown product %d", user, i, p.ProductID)
			}
			if p.Timestamp.Before(first) || p.Timestamp.After(last) {
				t.Errorf("user %d purchase %d at %v outside [%v, %v]", user, i, p.Timestamp, first, last)
			}
			if i > 0 && p.Timestamp.Before(h[i-1].Timestamp) {
				t.Errorf("user %d history not sorted at %d", user, i)
			}
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	t.Parallel()

	run := func(seed uint64) ([]recommend.Product, map[int][]recommend.Purchase) {
		cfg := smallConfig()
		cfg.Seed = seed
		g, err := New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		products := g.Products()
		return products, g.Purchases(products)
	}

	p1, h1 := run(7)
	p2, h2 := run(7)
	if !reflect.DeepEqual(p1, p2) || !reflect.DeepEqual(h1, h2) {
		t.Error("same seed produced different data")
	}

	_, h3 := run(8)
	if reflect.DeepEqual(h1, h3) {
		t.Error("different seeds produced identical purchases")
	}
}

func TestWritePurchasesCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WritePurchasesCSV(&buf, []recommend.Purchase{
		{UserID: 3, ProductID: 12, Timestamp: time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatalf("WritePurchasesCSV() error = %v", err)
	}
	want := "user_id,product_id,timestamp\n3,12,2024-02-09\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteCatalogCSV_Quoting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteCatalogCSV(&buf, []recommend.Product{
		{ID: 1, Name: "Tea, Green", Category: "drinks", Price: 1500},
	})
	if err != nil {
		t.Fatalf("WriteCatalogCSV() error = %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		{"product_id", "name", "category", "price"},
		{"1", "Tea, Green", "drinks", "1500"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %v, want %v", records, want)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := smallConfig()
	res, err := Generate(dir, cfg)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Products != 3 || res.Users != cfg.Users {
		t.Errorf("result = %+v", res)
	}
	if res.Purchases < cfg.Users*cfg.MinPurchases || res.Purchases > cfg.Users*cfg.MaxPurchases {
		t.Errorf("Purchases = %d out of range", res.Purchases)
	}

	files, err := filepath.Glob(filepath.Join(dir, "user_data", "user_*.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != cfg.Users {
		t.Errorf("wrote %d user files, want %d", len(files), cfg.Users)
	}

	data, err := os.ReadFile(res.CatalogPath)
	if err != nil {
		t.Fatalf("read catalog: %v", err)
	}
	if !strings.HasPrefix(string(data), "product_id,name,category,price\n") {
		t.Errorf("catalog header = %q", strings.SplitN(string(data), "\n", 2)[0])
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.Users = 0
	if _, err := Generate(t.TempDir(), cfg); !errors.Is(err, recommend.ErrInvalidInput) {
		t.Errorf("Generate() = %v, want ErrInvalidInput", err)
	}
}
