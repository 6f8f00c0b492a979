// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/storelens/internal/database"
	"github.com/tomtom215/storelens/internal/metrics"
	"github.com/tomtom215/storelens/internal/recommend"
	"github.com/tomtom215/storelens/internal/recommend/storage"
)

// Rebuild triggers, used as metric labels.
const (
	TriggerStartup   = "startup"
	TriggerScheduled = "scheduled"
)

// SnapshotEngine is the part of *recommend.Engine the rebuild service
// drives.
type SnapshotEngine interface {
	RebuildSnapshot(ctx context.Context) (*recommend.Snapshot, error)
	Restore(ctx context.Context, rows []recommend.ProductSimilarity) (*recommend.Snapshot, error)
	Snapshot() *recommend.Snapshot
}

// SimilarityStore persists the similarity table. *storage.Store
// satisfies it.
type SimilarityStore interface {
	Save(ctx context.Context, rows []recommend.ProductSimilarity) (*storage.FileInfo, error)
	Load(ctx context.Context) ([]recommend.ProductSimilarity, *storage.FileInfo, error)
	LastSaved() *storage.FileInfo
}

// BookSource loads the book catalog.
type BookSource interface {
	GetBooks(ctx context.Context) ([]recommend.Book, error)
}

// BookLoader indexes books for content similarity.
// *algorithms.BookShelf satisfies it.
type BookLoader interface {
	Load(books []recommend.Book) error
	Len() int
}

// RebuildServiceConfig holds configuration for the rebuild service.
type RebuildServiceConfig struct {
	// RestoreOnStartup serves an existing similarity file before the
	// first rebuild, such as one written by the similarity command.
	RestoreOnStartup bool

	// RebuildOnStartup rebuilds as soon as the service starts.
	RebuildOnStartup bool

	// Interval is how often to rebuild.
	// Default: 1h
	Interval time.Duration
}

// SimilarityRebuildService rebuilds the similarity snapshot on a schedule
// and on demand. A rebuild reloads the CSVs, swaps in a new snapshot,
// writes the similarity CSV and reindexes the books.
//
// A failed rebuild leaves the previous snapshot and file in place.
type SimilarityRebuildService struct {
	engine SnapshotEngine
	store  SimilarityStore
	books  BookSource
	shelf  BookLoader
	config RebuildServiceConfig
	logger zerolog.Logger
	name   string

	// saveMu orders file writes; savedVersion is the snapshot version
	// last written, so an older snapshot never overwrites a newer file.
	saveMu       sync.Mutex
	savedVersion int
}

// NewSimilarityRebuildService creates the service. books and shelf may be
// nil to skip book indexing.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSimilarityRebuildService(engine SnapshotEngine, store SimilarityStore, books BookSource, shelf BookLoader, cfg RebuildServiceConfig, logger zerolog.Logger) *SimilarityRebuildService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &SimilarityRebuildService{
		engine: engine,
		store:  store,
		books:  books,
		shelf:  shelf,
		config: cfg,
		logger: logger.With().Str("service", "similarity-rebuild").Logger(),
		name:   "similarity-rebuild",
	}
}

// Serve implements suture.Service. Rebuild failures are logged and retried
// on the next tick rather than returned, so a bad CSV never restarts the
// service in a tight loop.
func (s *SimilarityRebuildService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("rebuild_on_startup", s.config.RebuildOnStartup).
		Dur("interval", s.config.Interval).
		Msg("similarity rebuild service starting")

	if s.config.RestoreOnStartup && s.engine.Snapshot() == nil {
		if err := s.Restore(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("similarity file restore failed")
		}
	}

	if s.config.RebuildOnStartup {
		if _, err := s.Rebuild(ctx, TriggerStartup); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("initial rebuild failed (will retry on schedule)")
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("similarity rebuild service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.Rebuild(ctx, TriggerScheduled); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("scheduled rebuild failed")
			}
		}
	}
}

// Rebuild runs one full rebuild. A rebuild already running yields
// recommend.ErrRebuildInProgress.
func (s *SimilarityRebuildService) Rebuild(ctx context.Context, trigger string) (*storage.FileInfo, error) {
	start := time.Now()
	file, err := s.rebuild(ctx)
	metrics.RecordRebuild(trigger, time.Since(start), err)

	switch {
	case errors.Is(err, recommend.ErrRebuildInProgress):
		s.logger.Debug().Str("trigger", trigger).Msg("rebuild skipped, another is running")
	case err != nil:
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("similarity rebuild failed")
	default:
		s.logger.Info().
			Str("trigger", trigger).
			Int("rows", file.Rows).
			Int64("bytes", file.SizeBytes).
			Dur("duration", time.Since(start)).
			Msg("similarity rebuild complete")
	}
	return file, err
}

func (s *SimilarityRebuildService) rebuild(ctx context.Context) (*storage.FileInfo, error) {
	snap, err := s.engine.RebuildSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	file, err := s.save(ctx, snap)
	if err != nil {
		return nil, err
	}

	s.reloadBooks(ctx)
	return file, nil
}

// save writes snap's table unless a newer snapshot has already been
// written, in which case the current file is returned unchanged.
func (s *SimilarityRebuildService) save(ctx context.Context, snap *recommend.Snapshot) (*storage.FileInfo, error) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if snap.Version() <= s.savedVersion {
		s.logger.Debug().
			Int("version", snap.Version()).
			Int("saved_version", s.savedVersion).
			Msg("newer snapshot already saved, skipping write")
		return s.store.LastSaved(), nil
	}

	file, err := s.store.Save(ctx, snap.Similarity())
	if err != nil {
		return nil, fmt.Errorf("save similarity: %w", err)
	}
	s.savedVersion = snap.Version()
	metrics.UpdateSnapshotGauges(len(snap.Products()), len(snap.Purchases()), len(snap.Similarity()))
	metrics.SimilarityFileBytes.Set(float64(file.SizeBytes))
	return file, nil
}

// Restore serves the similarity file already on disk. A missing file is
// not an error.
func (s *SimilarityRebuildService) Restore(ctx context.Context) error {
	rows, file, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Debug().Msg("no similarity file to restore")
		return nil
	case err != nil:
		return err
	}

	snap, err := s.engine.Restore(ctx, rows)
	if err != nil {
		return err
	}

	s.saveMu.Lock()
	if snap.Version() > s.savedVersion {
		s.savedVersion = snap.Version()
	}
	s.saveMu.Unlock()

	metrics.UpdateSnapshotGauges(len(snap.Products()), len(snap.Purchases()), len(snap.Similarity()))
	metrics.SimilarityFileBytes.Set(float64(file.SizeBytes))
	s.reloadBooks(ctx)

	s.logger.Info().
		Str("path", file.Path).
		Int("rows", file.Rows).
		Str("sha256", file.Checksum).
		Int("version", snap.Version()).
		Msg("similarity file restored")
	return nil
}

// reloadBooks refreshes the book index. Failures keep the previous index
// and do not fail the rebuild.
func (s *SimilarityRebuildService) reloadBooks(ctx context.Context) {
	if s.books == nil || s.shelf == nil {
		return
	}

	books, err := s.books.GetBooks(ctx)
	switch {
	case errors.Is(err, database.ErrNoBooks):
		return
	case err != nil:
		s.logger.Warn().Err(err).Msg("book reload failed, keeping previous index")
		return
	}

	if err := s.shelf.Load(books); err != nil {
		s.logger.Warn().Err(err).Msg("book indexing failed, keeping previous index")
		return
	}
	metrics.BooksIndexed.Set(float64(s.shelf.Len()))
}

// LastFile returns the last written similarity file, or nil.
func (s *SimilarityRebuildService) LastFile() *storage.FileInfo {
	return s.store.LastSaved()
}

// String returns the service name for logging.
func (s *SimilarityRebuildService) String() string {
	return s.name
}
