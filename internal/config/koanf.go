// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched, first match wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/storelens/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			CatalogPath:    "data/product_data.csv",
			PurchasesGlob:  "data/user_data/*.csv",
			BooksPath:      "",
			BooksEncoding:  EncodingUTF8,
			SimilarityPath: "data/similarity.csv",
		},
		Database: DatabaseConfig{
			Path:      "",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Recommend: RecommendConfig{
			DegeneratePolicy:      "constant",
			ConstantScore:         0.5,
			RebuildInterval:       time.Hour,
			RebuildTimeout:        5 * time.Minute,
			RestoreOnStartup:      true,
			RebuildOnStartup:      true,
			ValidateReferences:    true,
			ManualRebuildInterval: time.Minute,
			BreakerFailures:       3,
			BreakerTimeout:        time.Minute,
			DefaultTopN:           10,
			MaxTopN:               100,
			RequestTimeout:        5 * time.Second,
			PriceBand:             1000,
			BrowseLimit:           10,
			CacheEnabled:          true,
			CacheTTL:              5 * time.Minute,
			Algorithms:            []string{"collaborative", "content", "popularity"},
			Neighbors:             10,
			MaxFeatures:           1000,
		},
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and
// the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"recommend.algorithms",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}

		parts := strings.Split(s, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Data files
	"catalog_path":    "data.catalog_path",
	"purchases_glob":  "data.purchases_glob",
	"books_path":      "data.books_path",
	"books_encoding":  "data.books_encoding",
	"similarity_path": "data.similarity_path",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Recommendation engine
	"recommend_degenerate_policy":       "recommend.degenerate_policy",
	"recommend_constant_score":          "recommend.constant_score",
	"recommend_rebuild_interval":        "recommend.rebuild_interval",
	"recommend_rebuild_timeout":         "recommend.rebuild_timeout",
	"recommend_restore_on_startup":      "recommend.restore_on_startup",
	"recommend_rebuild_on_startup":      "recommend.rebuild_on_startup",
	"recommend_validate_references":     "recommend.validate_references",
	"recommend_manual_rebuild_interval": "recommend.manual_rebuild_interval",
	"recommend_breaker_failures":        "recommend.breaker_failures",
	"recommend_breaker_timeout":         "recommend.breaker_timeout",
	"recommend_default_top_n":           "recommend.default_top_n",
	"recommend_max_top_n":               "recommend.max_top_n",
	"recommend_request_timeout":         "recommend.request_timeout",
	"recommend_price_band":              "recommend.price_band",
	"recommend_browse_limit":            "recommend.browse_limit",
	"recommend_cache_enabled":           "recommend.cache_enabled",
	"recommend_cache_ttl":               "recommend.cache_ttl",
	"recommend_algorithms":              "recommend.algorithms",
	"recommend_neighbors":               "recommend.neighbors",
	"recommend_max_features":            "recommend.max_features",

	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its config path.
// Unmapped variables return "" and are skipped.
//
//   - CATALOG_PATH -> data.catalog_path
//   - HTTP_PORT -> server.port
//   - RECOMMEND_CACHE_TTL -> recommend.cache_ttl
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
