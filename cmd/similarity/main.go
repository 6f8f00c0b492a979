// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Command similarity builds the product similarity table once and writes it
// to CSV, without starting the server.
//
//	similarity [-out data/similarity.csv] [-timeout 5m]
//
// Input locations and scoring settings come from the same configuration as
// the server (see internal/config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/storage"
)

func main() {
	out := flag.String("out", "", "output CSV (default: SIMILARITY_PATH)")
	timeout := flag.Duration("timeout", 5*time.Minute, "maximum build time")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	if *out != "" {
		cfg.Data.SimilarityPath = *out
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	file, err := run(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Similarity build failed")
		os.Exit(1)
	}

	logging.Info().
		Str("path", file.Path).
		Int("rows", file.Rows).
		Int64("bytes", file.SizeBytes).
		Str("sha256", file.Checksum).
		Msg("Similarity table written")
}

// run loads the CSVs through DuckDB, scores every co-purchased pair and
// saves the table.
func run(ctx context.Context, cfg *config.Config) (*storage.FileInfo, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	source := database.NewCSVSource(db, cfg.Data)
	products, err := source.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	purchases, err := source.GetPurchases(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := recommend.BuildSimilarity(ctx, products, purchases,
		cfg.Recommend.ValidateReferences, cfg.Recommend.EngineConfig().ScoreOptions())
	if err != nil {
		return nil, err
	}
	logging.Info().
		Int("products", len(products)).
		Int("purchases", len(purchases)).
		Int("pairs", len(rows)).
		Dur("elapsed", time.Since(start)).
		Msg("Similarity computed")

	store, err := storage.NewStore(cfg.Data.SimilarityPath)
	if err != nil {
		return nil, err
	}
	return store.Save(ctx, rows)
}
