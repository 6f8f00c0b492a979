// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package datagen generates a synthetic product catalog and per-user
// purchase histories in the CSV layouts the database loader reads.
//
// Output is fully determined by Config.Seed.
package datagen

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/recommend"
)

// Catalog maps a category to its product names.
type Catalog map[string][]string

// DefaultCatalog is a bookstore catalog of twelve technical categories.
var DefaultCatalog = Catalog{
	"Programming": {
		"Python Primer", "Mastering Java", "C++ In Depth", "Practical Go", "Rust Programming",
		"Swift Basics", "Kotlin Development", "Algorithms and Data Structures", "Design Patterns",
		"Functional Programming", "Test Driven Development", "Modern JavaScript", "TypeScript Primer",
	},
	"Data Science": {
		"Data Analysis Basics", "Introduction to Statistics", "Building Machine Learning Models",
		"SQL Data Analysis", "Data Visualization", "Big Data Analytics", "Time Series Analysis",
		"Regression Analysis", "Unsupervised Learning", "Anomaly Detection",
	},
	"AI": {
		"Deep Learning Primer", "Reinforcement Learning in Practice", "Natural Language Processing",
		"Image Recognition", "Speech Recognition AI", "Transformer Primer", "AI Ethics", "Building AI Chatbots",
	},
	"Cloud Computing": {
		"AWS Primer", "Azure in Practice", "Cloud Architecture", "Serverless Development",
		"Kubernetes Basics", "Docker in Practice", "Microservices", "DevOps and CI/CD",
	},
	"Cybersecurity": {
		"Network Security", "Cryptography", "Penetration Testing", "Malware Analysis",
		"Secure Coding", "Zero Trust Security",
	},
	"Blockchain": {
		"Blockchain Basics", "Ethereum Development", "Smart Contracts", "Decentralized Apps",
	},
	"Databases": {
		"SQL Primer", "NoSQL in Practice", "Database Design", "Distributed Databases", "Data Modeling",
	},
	"Web Development": {
		"HTML and CSS Basics", "React Primer", "Vue.js Development", "Web API Design",
		"Backend Development", "GraphQL Primer",
	},
	"Mobile Apps": {
		"Android Development", "iOS App Development", "React Native Primer", "Flutter in Practice",
	},
	"Game Development": {
		"Unity Game Development", "Game Design Theory", "3D Modeling", "Game AI Development",
	},
	"IoT": {
		"IoT Basics", "Edge Computing", "Embedded Systems", "Sensor Data Processing",
	},
	"Robotics": {
		"Robot Control", "ROS Programming", "Autonomous Mobile Robots", "Robot Arm Control",
	},
}

// Config controls generation.
type Config struct {
	// Seed makes output reproducible.
	Seed uint64

	// Catalog is the category to product names map.
	// Default: DefaultCatalog
	Catalog Catalog

	// MinPrice and MaxPrice bound product prices, inclusive.
	// Default: 1000 and 10000
	MinPrice int
	MaxPrice int

	// Users is the number of users.
	// Default: 100
	Users int

	// MinPurchases and MaxPurchases bound each user's purchase count,
	// inclusive.
	// Default: 10 and 50
	MinPurchases int
	MaxPurchases int

	// Start is the day before the earliest possible purchase.
	// Default: 2024-01-01
	Start time.Time

	// Days is the span purchases fall in, counted from Start + 1 day.
	// Default: 300
	Days int
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Seed:         42,
		Catalog:      DefaultCatalog,
		MinPrice:     1000,
		MaxPrice:     10000,
		Users:        100,
		MinPurchases: 10,
		MaxPurchases: 50,
		Start:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:         300,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch {
	case len(c.Catalog) == 0:
		return fmt.Errorf("%w: catalog is empty", recommend.ErrInvalidInput)
	case c.MinPrice < 0 || c.MaxPrice < c.MinPrice:
		return fmt.Errorf("%w: price range [%d, %d]", recommend.ErrInvalidInput, c.MinPrice, c.MaxPrice)
	case c.Users < 1:
		return fmt.Errorf("%w: users must be positive, got %d", recommend.ErrInvalidInput, c.Users)
	case c.MinPurchases < 1 || c.MaxPurchases < c.MinPurchases:
		return fmt.Errorf("%w: purchase range [%d, %d]", recommend.ErrInvalidInput, c.MinPurchases, c.MaxPurchases)
	case c.Days < 1:
		return fmt.Errorf("%w: days must be positive, got %d", recommend.ErrInvalidInput, c.Days)
	}
	return nil
}

// Generator produces a catalog and purchase histories.
type Generator struct {
	config Config
	rng    *rand.Rand
}

// New creates a generator.
func New(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		config: cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)), //nolint:gosec // synthetic data, not security sensitive
	}, nil
}

// Products numbers every catalog entry from 1, categories in name order
// and products in listed order, with a uniform random price.
func (g *Generator) Products() []recommend.Product {
	categories := make([]string, 0, len(g.config.Catalog))
	for c := range g.config.Catalog {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var products []recommend.Product
	id := 1
	for _, category := range categories {
		for _, name := range g.config.Catalog[category] {
			products = append(products, recommend.Product{
				ID:       id,
				Name:     name,
				Category: category,
				Price:    float64(g.between(g.config.MinPrice, g.config.MaxPrice)),
			})
			id++
		}
	}
	return products
}

// Purchases draws each user's history: a random count of uniformly chosen
// products on random whole days, sorted by date.
func (g *Generator) Purchases(products []recommend.Product) map[int][]recommend.Purchase {
	out := make(map[int][]recommend.Purchase, g.config.Users)
	if len(products) == 0 {
		return out
	}

	for user := 1; user <= g.config.Users; user++ {
		n := g.between(g.config.MinPurchases, g.config.MaxPurchases)
		history := make([]recommend.Purchase, n)
		for i := range history {
			history[i] = recommend.Purchase{
				UserID:    user,
				ProductID: products[g.rng.IntN(len(products))].ID,
				Timestamp: g.config.Start.AddDate(0, 0, g.between(1, g.config.Days)),
			}
		}
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp.Before(history[j].Timestamp)
		})
		out[user] = history
	}
	return out
}

func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

// WriteCatalogCSV writes product_id,name,category,price.
func WriteCatalogCSV(w io.Writer, products []recommend.Product) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"product_id", "name", "category", "price"}); err != nil {
		return err
	}
	for _, p := range products {
		if err := cw.Write([]string{
			strconv.Itoa(p.ID),
			p.Name,
			p.Category,
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePurchasesCSV writes user_id,product_id,timestamp with dates as
// YYYY-MM-DD.
func WritePurchasesCSV(w io.Writer, purchases []recommend.Purchase) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"user_id", "product_id", "timestamp"}); err != nil {
		return err
	}
	for _, p := range purchases {
		if err := cw.Write([]string{
			strconv.Itoa(p.UserID),
			strconv.Itoa(p.ProductID),
			p.Timestamp.Format(time.DateOnly),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Result summarizes a Generate run.
type Result struct {
	CatalogPath string
	UserDir     string
	Products    int
	Users       int
	Purchases   int
}

// Generate writes dir/product_data.csv and dir/user_data/user_<id>.csv.
func Generate(dir string, cfg Config) (*Result, error) {
	g, err := New(cfg)
	if err != nil {
		return nil, err
	}

	userDir := filepath.Join(dir, "user_data")
	if err := os.MkdirAll(userDir, 0o750); err != nil {
		return nil, fmt.Errorf("create %s: %w", userDir, err)
	}

	products := g.Products()
	res := &Result{
		CatalogPath: filepath.Join(dir, "product_data.csv"),
		UserDir:     userDir,
		Products:    len(products),
	}
	if err := writeFile(res.CatalogPath, func(w io.Writer) error { return WriteCatalogCSV(w, products) }); err != nil {
		return nil, err
	}

	histories := g.Purchases(products)
	for user := 1; user <= cfg.Users; user++ {
		history := histories[user]
		path := filepath.Join(userDir, fmt.Sprintf("user_%d.csv", user))
		if err := writeFile(path, func(w io.Writer) error { return WritePurchasesCSV(w, history) }); err != nil {
			return nil, err
		}
		res.Users++
		res.Purchases += len(history)
	}

	logging.Info().
		Str("dir", dir).
		Int("products", res.Products).
		Int("users", res.Users).
		Int("purchases", res.Purchases).
		Msg("synthetic data generated")
	return res, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path) //nolint:gosec // path built from the caller's output directory
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
