// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/tomtom215/storelens/docs" // generated swagger docs
	"github.com/tomtom215/storelens/internal/api"
	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/algorithms"
	"github.com/tomtom215/storelens/internal/recommend/storage"
	"github.com/tomtom215/storelens/internal/supervisor"
	"github.com/tomtom215/storelens/internal/supervisor/services"
)

func main() {
	// A missing .env is normal; the environment may already be set.
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

	logging.Info().
		Str("catalog", cfg.Data.CatalogPath).
		Str("purchases", cfg.Data.PurchasesGlob).
		Str("similarity", cfg.Data.SimilarityPath).
		Strs("algorithms", cfg.Recommend.Algorithms).
		Msg("Starting Storelens")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	source := database.NewBreakerSource(
		database.NewCSVSource(db, cfg.Data),
		cfg.Recommend.BreakerFailures,
		cfg.Recommend.BreakerTimeout,
	)

	engine, err := newEngine(cfg, source)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation engine")
	}
	defer engine.Close()

	shelf := algorithms.NewBookShelf(contentConfig(cfg))

	store, err := storage.NewStore(cfg.Data.SimilarityPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize similarity store")
	}

	rebuilder := services.NewSimilarityRebuildService(engine, store, source, shelf, services.RebuildServiceConfig{
		RestoreOnStartup: cfg.Recommend.RestoreOnStartup,
		RebuildOnStartup: cfg.Recommend.RebuildOnStartup,
		Interval:         cfg.Recommend.RebuildInterval,
	}, logging.WithComponent("rebuild"))

	handler := api.NewHandler(engine, db, shelf, rebuilder, cfg)
	router := api.NewRouter(handler, nil)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(rebuilder)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newEngine builds the engine and registers the configured algorithms.
func newEngine(cfg *config.Config, source recommend.DataProvider) (*recommend.Engine, error) {
	engine, err := recommend.NewEngine(cfg.Recommend.EngineConfig(), logging.WithComponent("recommend"))
	if err != nil {
		return nil, err
	}
	engine.SetDataProvider(source)

	if cfg.Recommend.HasAlgorithm("collaborative") {
		collab := algorithms.DefaultCollaborativeConfig()
		if cfg.Recommend.Neighbors > 0 {
			collab.Neighbors = cfg.Recommend.Neighbors
		}
		engine.RegisterAlgorithm(algorithms.NewCollaborative(collab))
	}
	if cfg.Recommend.HasAlgorithm("content") {
		engine.RegisterAlgorithm(algorithms.NewContentBased(contentConfig(cfg)))
	}
	if cfg.Recommend.HasAlgorithm("popularity") {
		engine.RegisterAlgorithm(algorithms.NewPopularity())
	}
	return engine, nil
}

func contentConfig(cfg *config.Config) algorithms.ContentConfig {
	content := algorithms.DefaultContentConfig()
	if cfg.Recommend.MaxFeatures > 0 {
		content.Vectorizer.MaxFeatures = cfg.Recommend.MaxFeatures
	}
	return content
}
