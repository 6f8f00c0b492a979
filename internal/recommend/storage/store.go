// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tomtom215/storelens/internal/recommend"
)

// FileInfo describes a saved similarity file.
type FileInfo struct {
	// Path is the file location.
	Path string `json:"path"`

	// Rows is the number of similarity rows, excluding the header.
	Rows int `json:"rows"`

	// Checksum is the SHA-256 of the file bytes.
	Checksum string `json:"checksum"`

	// SizeBytes is the file size.
	SizeBytes int64 `json:"size_bytes"`

	// SavedAt is when the file was written.
	SavedAt time.Time `json:"saved_at"`
}

// Store manages the similarity file at a fixed path.
type Store struct {
	path string
	mu   sync.RWMutex
	last *FileInfo
}

// NewStore creates a store writing to path, creating its directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("similarity path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes rows to a temp file in the same directory, syncs it and
// renames it over the target.
func (s *Store) Save(ctx context.Context, rows []recommend.ProductSimilarity) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".similarity-*.csv.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()        //nolint:errcheck // cleanup after failure
			_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		}
	}()

	hash := sha256.New()
	counter := &countingWriter{}
	if err := WriteSimilarityCSV(io.MultiWriter(tmp, hash, counter), rows); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o640); err != nil { //nolint:gosec // group-readable for analytics consumers
		return nil, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return nil, fmt.Errorf("rename similarity file: %w", err)
	}
	committed = true

	info := &FileInfo{
		Path:      s.path,
		Rows:      len(rows),
		Checksum:  hex.EncodeToString(hash.Sum(nil)),
		SizeBytes: counter.n,
		SavedAt:   time.Now(),
	}
	s.last = info
	return info, nil
}

// Load reads and validates the current file. A successful load becomes
// LastSaved when nothing has been saved by this store yet.
func (s *Store) Load(ctx context.Context) ([]recommend.ProductSimilarity, *FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("open similarity file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	hash := sha256.New()
	counter := &countingWriter{}
	rows, err := ReadSimilarityCSV(io.TeeReader(f, io.MultiWriter(hash, counter)))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat similarity file: %w", err)
	}

	info := &FileInfo{
		Path:      s.path,
		Rows:      len(rows),
		Checksum:  hex.EncodeToString(hash.Sum(nil)),
		SizeBytes: counter.n,
		SavedAt:   stat.ModTime(),
	}
	if s.last == nil {
		last := *info
		s.last = &last
	}
	return rows, info, nil
}

// LastSaved returns the info of the most recent Save, or nil.
func (s *Store) LastSaved() *FileInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil
	}
	info := *s.last
	return &info
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
