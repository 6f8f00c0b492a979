// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package config loads Storelens configuration.
//
// Sources are layered with Koanf, later layers overriding earlier ones:
//
//  1. Built-in defaults
//  2. Optional YAML file (CONFIG_PATH, or config.yaml in the working directory)
//  3. Environment variables
//
// Only environment variables listed in the env mapping are read, so
// unrelated variables never leak into the configuration.
//
// # Environment Variables
//
//	CATALOG_PATH, PURCHASES_GLOB, BOOKS_PATH, SIMILARITY_PATH
//	DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
//	HTTP_PORT, HTTP_HOST, HTTP_TIMEOUT, ENVIRONMENT
//	RECOMMEND_* (see envMappings)
//	RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
package config

import (
	"time"

	"github.com/tomtom215/storelens/internal/recommend"
)

// Config is the complete application configuration.
type Config struct {
	Data      DataConfig      `koanf:"data"`
	Database  DatabaseConfig  `koanf:"database"`
	Recommend RecommendConfig `koanf:"recommend"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// Supported BooksEncoding values.
const (
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift-jis"
)

// DataConfig locates the input and output files.
type DataConfig struct {
	// CatalogPath is the product catalog CSV.
	CatalogPath string `koanf:"catalog_path"`

	// PurchasesGlob matches every purchase history CSV.
	PurchasesGlob string `koanf:"purchases_glob"`

	// BooksPath is the optional book catalog CSV for content recommendations.
	// Empty disables the book endpoints.
	BooksPath string `koanf:"books_path"`

	// BooksEncoding is the character encoding of BooksPath: EncodingUTF8
	// or EncodingShiftJIS.
	BooksEncoding string `koanf:"books_encoding"`

	// SimilarityPath is where the similarity table is written.
	SimilarityPath string `koanf:"similarity_path"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file. Empty runs in memory; the tables are
	// reloaded from CSV on every rebuild anyway.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// RecommendConfig holds engine and rebuild settings.
type RecommendConfig struct {
	// DegeneratePolicy is "error" or "constant".
	DegeneratePolicy string  `koanf:"degenerate_policy"`
	ConstantScore    float64 `koanf:"constant_score"`

	RebuildInterval    time.Duration `koanf:"rebuild_interval"`
	RebuildTimeout     time.Duration `koanf:"rebuild_timeout"`
	RebuildOnStartup   bool          `koanf:"rebuild_on_startup"`

	// RestoreOnStartup serves an existing similarity file before the
	// first rebuild.
	RestoreOnStartup bool `koanf:"restore_on_startup"`
	ValidateReferences bool          `koanf:"validate_references"`

	// ManualRebuildInterval is the minimum spacing between rebuilds
	// requested over HTTP.
	ManualRebuildInterval time.Duration `koanf:"manual_rebuild_interval"`

	// BreakerFailures is the number of consecutive data-load failures that
	// open the rebuild circuit breaker.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`

	DefaultTopN    int           `koanf:"default_top_n"`
	MaxTopN        int           `koanf:"max_top_n"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	PriceBand   float64 `koanf:"price_band"`
	BrowseLimit int     `koanf:"browse_limit"`

	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`

	// Algorithms lists the trainable models to register:
	// collaborative, content, popularity.
	Algorithms []string `koanf:"algorithms"`

	// Neighbors is the collaborative neighborhood size.
	Neighbors int `koanf:"neighbors"`

	// MaxFeatures caps the TF-IDF vocabulary.
	MaxFeatures int `koanf:"max_features"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds request throttling and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller adds file:line to every entry.
	Caller bool `koanf:"caller"`
}

// EngineConfig converts the recommend section into the engine's
// configuration.
func (r *RecommendConfig) EngineConfig() *recommend.Config {
	return &recommend.Config{
		Similarity: recommend.SimilarityConfig{
			DegeneratePolicy: r.DegeneratePolicy,
			ConstantScore:    r.ConstantScore,
		},
		Rebuild: recommend.RebuildConfig{
			Timeout:            r.RebuildTimeout,
			ValidateReferences: r.ValidateReferences,
		},
		Limits: recommend.LimitsConfig{
			DefaultTopN:    r.DefaultTopN,
			MaxTopN:        r.MaxTopN,
			RequestTimeout: r.RequestTimeout,
		},
		Browse: recommend.BrowseConfig{
			PriceBand: r.PriceBand,
			Limit:     r.BrowseLimit,
		},
		Cache: recommend.CacheConfig{
			Enabled: r.CacheEnabled,
			TTL:     r.CacheTTL,
		},
	}
}

// HasAlgorithm reports whether name is listed in Algorithms.
func (r *RecommendConfig) HasAlgorithm(name string) bool {
	for _, a := range r.Algorithms {
		if a == name {
			return true
		}
	}
	return false
}

// IsProduction reports whether the server runs in production mode.
func (s *ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}
