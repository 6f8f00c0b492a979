// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Similarity controls how the similarity table is scored.
	Similarity SimilarityConfig `json:"similarity"`

	// Rebuild contains snapshot rebuild parameters.
	Rebuild RebuildConfig `json:"rebuild"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits"`

	// Browse contains parameters for the catalog browsing helpers.
	Browse BrowseConfig `json:"browse"`

	// Cache contains caching parameters.
	Cache CacheConfig `json:"cache"`
}

// SimilarityConfig controls similarity scoring.
type SimilarityConfig struct {
	// DegeneratePolicy decides what happens when all non-identity raw
	// scores are equal: "error" fails the build, "constant" emits
	// ConstantScore for every non-identity pair.
	// Default: "constant".
	DegeneratePolicy string `json:"degenerate_policy"`

	// ConstantScore is used by the "constant" policy.
	// Default: 0.5.
	ConstantScore float64 `json:"constant_score"`
}

// RebuildConfig contains snapshot rebuild parameters.
type RebuildConfig struct {
	// Timeout is the maximum time allowed for a rebuild.
	// Default: 5m.
	Timeout time.Duration `json:"timeout"`

	// ValidateReferences rejects purchases of unknown products before
	// building co-occurrence.
	// Default: true.
	ValidateReferences bool `json:"validate_references"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultTopN is the default number of recommendations to return.
	// Default: 10.
	DefaultTopN int `json:"default_top_n"`

	// MaxTopN is the maximum allowed TopN value.
	// Default: 100.
	MaxTopN int `json:"max_top_n"`

	// RequestTimeout is the maximum time for a single request.
	// Default: 5s.
	RequestTimeout time.Duration `json:"request_timeout"`
}

// BrowseConfig contains parameters for SimilarByCategory and SimilarByPrice.
type BrowseConfig struct {
	// PriceBand is the +/- price window for SimilarByPrice.
	// Default: 1000.
	PriceBand float64 `json:"price_band"`

	// Limit is the number of products returned by each helper.
	// Default: 10.
	Limit int `json:"limit"`
}

// CacheConfig contains caching parameters.
type CacheConfig struct {
	// Enabled controls whether response caching is active.
	// Default: true.
	Enabled bool `json:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl"`
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() *Config {
	return &Config{
		Similarity: SimilarityConfig{
			DegeneratePolicy: DegenerateConstant.String(),
			ConstantScore:    0.5,
		},
		Rebuild: RebuildConfig{
			Timeout:            5 * time.Minute,
			ValidateReferences: true,
		},
		Limits: LimitsConfig{
			DefaultTopN:    10,
			MaxTopN:        100,
			RequestTimeout: 5 * time.Second,
		},
		Browse: BrowseConfig{
			PriceBand: 1000,
			Limit:     10,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := ParseDegeneratePolicy(c.Similarity.DegeneratePolicy); err != nil {
		return err
	}
	if c.Similarity.ConstantScore < 0 || c.Similarity.ConstantScore > 1 {
		return fmt.Errorf("similarity.constant_score must be in [0, 1], got %f", c.Similarity.ConstantScore)
	}

	if c.Rebuild.Timeout <= 0 {
		return fmt.Errorf("rebuild.timeout must be positive, got %v", c.Rebuild.Timeout)
	}

	if c.Limits.DefaultTopN < 1 {
		return fmt.Errorf("limits.default_top_n must be positive, got %d", c.Limits.DefaultTopN)
	}
	if c.Limits.MaxTopN < c.Limits.DefaultTopN {
		return fmt.Errorf("limits.max_top_n must be >= limits.default_top_n, got %d < %d", c.Limits.MaxTopN, c.Limits.DefaultTopN)
	}
	if c.Limits.RequestTimeout <= 0 {
		return fmt.Errorf("limits.request_timeout must be positive, got %v", c.Limits.RequestTimeout)
	}

	if c.Browse.PriceBand < 0 {
		return fmt.Errorf("browse.price_band must be non-negative, got %f", c.Browse.PriceBand)
	}
	if c.Browse.Limit < 1 {
		return fmt.Errorf("browse.limit must be positive, got %d", c.Browse.Limit)
	}

	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache is enabled, got %v", c.Cache.TTL)
	}

	return nil
}

// ScoreOptions derives the scorer options from the configuration.
// Validate must have succeeded.
func (c *Config) ScoreOptions() ScoreOptions {
	policy, _ := ParseDegeneratePolicy(c.Similarity.DegeneratePolicy) //nolint:errcheck // checked by Validate
	return ScoreOptions{
		Degenerate:    policy,
		ConstantScore: c.Similarity.ConstantScore,
	}
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	// All nested structs contain only value types
	clone := *c
	return &clone
}
