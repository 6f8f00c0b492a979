// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tomtom215/storelens/internal/logging"
)

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// booksEncodings maps accepted spellings to the canonical name.
var booksEncodings = map[string]string{
	"":          EncodingUTF8,
	"utf-8":     EncodingUTF8,
	"utf8":      EncodingUTF8,
	"shift-jis": EncodingShiftJIS,
	"shift_jis": EncodingShiftJIS,
	"sjis":      EncodingShiftJIS,
	"cp932":     EncodingShiftJIS,
}

var knownAlgorithms = map[string]bool{
	"collaborative": true,
	"content":       true,
	"popularity":    true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateData(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateData() error {
	if c.Data.CatalogPath == "" {
		return fmt.Errorf("CATALOG_PATH is required")
	}
	if c.Data.PurchasesGlob == "" {
		return fmt.Errorf("PURCHASES_GLOB is required")
	}
	if _, err := filepath.Match(c.Data.PurchasesGlob, ""); err != nil {
		return fmt.Errorf("PURCHASES_GLOB is not a valid pattern: %w", err)
	}
	if c.Data.SimilarityPath == "" {
		return fmt.Errorf("SIMILARITY_PATH is required")
	}
	enc, ok := booksEncodings[strings.ToLower(c.Data.BooksEncoding)]
	if !ok {
		return fmt.Errorf("BOOKS_ENCODING must be one of: utf-8, shift-jis")
	}
	c.Data.BooksEncoding = enc
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, got %d", c.Database.Threads)
	}
	if strings.ContainsAny(c.Database.MaxMemory, "'\"") {
		return fmt.Errorf("DUCKDB_MAX_MEMORY contains quotes: %q", c.Database.MaxMemory)
	}
	return nil
}

func (c *Config) validateRecommend() error {
	r := &c.Recommend

	if r.RebuildInterval <= 0 {
		return fmt.Errorf("RECOMMEND_REBUILD_INTERVAL must be positive, got %v", r.RebuildInterval)
	}
	if r.ManualRebuildInterval < 0 {
		return fmt.Errorf("RECOMMEND_MANUAL_REBUILD_INTERVAL must be non-negative, got %v", r.ManualRebuildInterval)
	}
	if r.BreakerFailures == 0 {
		return fmt.Errorf("RECOMMEND_BREAKER_FAILURES must be at least 1")
	}
	if r.BreakerTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_BREAKER_TIMEOUT must be positive, got %v", r.BreakerTimeout)
	}
	if len(r.Algorithms) == 0 {
		return fmt.Errorf("RECOMMEND_ALGORITHMS must list at least one algorithm")
	}
	for _, a := range r.Algorithms {
		if !knownAlgorithms[a] {
			return fmt.Errorf("RECOMMEND_ALGORITHMS: unknown algorithm %q (want collaborative, content or popularity)", a)
		}
	}
	if r.Neighbors < 1 {
		return fmt.Errorf("RECOMMEND_NEIGHBORS must be positive, got %d", r.Neighbors)
	}
	if r.MaxFeatures < 1 {
		return fmt.Errorf("RECOMMEND_MAX_FEATURES must be positive, got %d", r.MaxFeatures)
	}

	if err := r.EngineConfig().Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	if !validEnvironments[c.Server.Environment] {
		return fmt.Errorf("ENVIRONMENT must be one of: development, staging, production")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %v", c.Security.RateLimitWindow)
		}
	}
	if c.Server.IsProduction() {
		for _, o := range c.Security.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
