// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/tomtom215/storelens/internal/config"
	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/recommend"
)

// Columns are declared explicitly so files bind by position. Header names
// are ignored, which lets the Japanese-headed exports load unchanged.
const (
	catalogColumns   = `{'product_id': 'VARCHAR', 'name': 'VARCHAR', 'category': 'VARCHAR', 'price': 'VARCHAR'}`
	purchaseColumns  = `{'user_id': 'VARCHAR', 'product_id': 'VARCHAR', 'ts': 'VARCHAR'}`
	bookColumns      = `{'book_id': 'VARCHAR', 'author': 'VARCHAR', 'title': 'VARCHAR', 'average_rating': 'VARCHAR', 'ratings_count': 'VARCHAR', 'image_url': 'VARCHAR'}`
	readCSVOptions   = `header = true, auto_detect = false`
	timestampFormats = `['%Y-%m-%d %H:%M:%S', '%Y-%m-%d %H:%M', '%Y/%m/%d %H:%M:%S', '%Y/%m/%d %H:%M', '%Y/%m/%d']`
)

// LoadStats describes one table reload.
type LoadStats struct {
	Table    string        `json:"table"`
	Files    int           `json:"files"`
	Rows     int64         `json:"rows"`
	Duration time.Duration `json:"duration"`
}

// LoadCatalog replaces the products table with the contents of path.
// Rows with a missing or non-numeric id or price, and duplicate ids, fail
// the whole load with recommend.ErrInvalidInput.
func (db *DB) LoadCatalog(ctx context.Context, path string) (LoadStats, error) {
	db.catalogMu.Lock()
	defer db.catalogMu.Unlock()

	source := fmt.Sprintf("read_csv(%s, %s, columns = %s)", quoteLiteral(path), readCSVOptions, catalogColumns)
	insert := `INSERT INTO products
		SELECT TRY_CAST(trim(product_id) AS INTEGER),
		       COALESCE(name, ''),
		       COALESCE(category, ''),
		       TRY_CAST(trim(price) AS DOUBLE)
		FROM ` + source

	// Cells are read as text and cast here so a bad value can be reported
	// with its row instead of a bare conversion error.
	stats, err := db.replaceTable(ctx, "products", []string{path}, func(tx *sql.Tx) (int64, error) {
		if err := checkCatalog(ctx, tx, source); err != nil {
			return 0, err
		}
		return execRows(ctx, tx, insert)
	})
	if err != nil {
		return stats, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return stats, nil
}

func checkCatalog(ctx context.Context, tx *sql.Tx, source string) error {
	var bad sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT product_id FROM `+source+`
		WHERE TRY_CAST(trim(product_id) AS INTEGER) IS NULL
		   OR TRY_CAST(trim(price) AS DOUBLE) IS NULL
		LIMIT 1`).Scan(&bad)
	switch {
	case err == nil:
		return fmt.Errorf("%w: catalog row with product_id %q has a missing or non-numeric id or price",
			recommend.ErrInvalidInput, bad.String)
	case !errors.Is(err, sql.ErrNoRows):
		return wrapReadError(err)
	}

	var dup int64
	err = tx.QueryRowContext(ctx, `SELECT TRY_CAST(trim(product_id) AS INTEGER) AS id FROM `+source+`
		GROUP BY id HAVING COUNT(*) > 1
		ORDER BY id LIMIT 1`).Scan(&dup)
	switch {
	case err == nil:
		return fmt.Errorf("%w: duplicate product_id %d", recommend.ErrInvalidInput, dup)
	case !errors.Is(err, sql.ErrNoRows):
		return wrapReadError(err)
	}
	return nil
}

// LoadPurchases replaces the purchases table with every file matching
// glob. The files form one stream; a glob matching nothing loads an empty
// table. Timestamps accept ISO dates with optional time and the
// slash-separated variants.
func (db *DB) LoadPurchases(ctx context.Context, glob string) (LoadStats, error) {
	db.purchasesMu.Lock()
	defer db.purchasesMu.Unlock()

	files, err := filepath.Glob(glob)
	if err != nil {
		return LoadStats{Table: "purchases"}, fmt.Errorf("load purchases: %w: bad pattern %q", recommend.ErrInvalidInput, glob)
	}
	sort.Strings(files)

	stats, err := db.replaceTable(ctx, "purchases", files, func(tx *sql.Tx) (int64, error) {
		if len(files) == 0 {
			return 0, nil
		}

		source := fmt.Sprintf("read_csv(%s, %s, columns = %s)", quoteList(files), readCSVOptions, purchaseColumns)
		parsed := `SELECT TRY_CAST(trim(user_id) AS INTEGER) AS user_id,
		       TRY_CAST(trim(product_id) AS INTEGER) AS product_id,
		       COALESCE(TRY_CAST(trim(ts) AS TIMESTAMP), try_strptime(trim(ts), ` + timestampFormats + `)) AS parsed_ts,
		       ts AS raw_ts
		FROM ` + source

		var badUser, badProduct, badTS sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT CAST(user_id AS VARCHAR), CAST(product_id AS VARCHAR), raw_ts
			FROM (`+parsed+`)
			WHERE user_id IS NULL OR product_id IS NULL OR parsed_ts IS NULL
			LIMIT 1`).Scan(&badUser, &badProduct, &badTS)
		switch {
		case err == nil:
			return 0, fmt.Errorf("%w: purchase row (user %q, product %q, timestamp %q) has a missing or unparseable field",
				recommend.ErrInvalidInput, badUser.String, badProduct.String, badTS.String)
		case !errors.Is(err, sql.ErrNoRows):
			return 0, wrapReadError(err)
		}

		return execRows(ctx, tx, `INSERT INTO purchases SELECT user_id, product_id, parsed_ts FROM (`+parsed+`)`)
	})
	if err != nil {
		return stats, fmt.Errorf("load purchases %s: %w", glob, err)
	}
	return stats, nil
}

// LoadBooks replaces the books table with the contents of path. Missing
// author or title cells load as empty strings; missing ratings load as 0.
// A Shift-JIS file is transcoded to a temporary UTF-8 copy first, since
// read_csv only reads UTF-8.
func (db *DB) LoadBooks(ctx context.Context, path, encoding string) (LoadStats, error) {
	db.booksMu.Lock()
	defer db.booksMu.Unlock()

	readPath := path
	if encoding == config.EncodingShiftJIS {
		tmp, err := shiftJISToUTF8(path)
		if err != nil {
			return LoadStats{Table: "books", Files: 1}, fmt.Errorf("load books %s: %w", path, err)
		}
		defer func() {
			if err := os.Remove(tmp); err != nil {
				logging.Warn().Err(err).Str("path", tmp).Msg("Failed to remove transcoded books file")
			}
		}()
		readPath = tmp
	}

	source := fmt.Sprintf("read_csv(%s, %s, columns = %s)", quoteLiteral(readPath), readCSVOptions, bookColumns)

	stats, err := db.replaceTable(ctx, "books", []string{path}, func(tx *sql.Tx) (int64, error) {
		var bad sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT book_id FROM `+source+`
			WHERE TRY_CAST(trim(book_id) AS INTEGER) IS NULL LIMIT 1`).Scan(&bad)
		switch {
		case err == nil:
			return 0, fmt.Errorf("%w: book row with book_id %q has a missing or non-numeric id",
				recommend.ErrInvalidInput, bad.String)
		case !errors.Is(err, sql.ErrNoRows):
			return 0, wrapReadError(err)
		}

		return execRows(ctx, tx, `INSERT INTO books
			SELECT TRY_CAST(trim(book_id) AS INTEGER),
			       COALESCE(author, ''),
			       COALESCE(title, ''),
			       COALESCE(TRY_CAST(trim(average_rating) AS DOUBLE), 0),
			       COALESCE(TRY_CAST(trim(ratings_count) AS BIGINT), 0),
			       COALESCE(image_url, '')
			FROM `+source)
	})
	if err != nil {
		return stats, fmt.Errorf("load books %s: %w", path, err)
	}
	return stats, nil
}

// shiftJISToUTF8 decodes path into a new temporary file and returns its
// name. The caller removes it.
func shiftJISToUTF8(path string) (string, error) {
	in, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return "", fmt.Errorf("read csv: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.CreateTemp("", "books-*.csv")
	if err != nil {
		return "", fmt.Errorf("create transcode file: %w", err)
	}
	_, err = io.Copy(out, transform.NewReader(in, japanese.ShiftJIS.NewDecoder()))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(out.Name())
		return "", fmt.Errorf("transcode shift-jis: %w", err)
	}
	return out.Name(), nil
}

// replaceTable runs DELETE plus fill in one transaction.
func (db *DB) replaceTable(ctx context.Context, table string, files []string, fill func(tx *sql.Tx) (int64, error)) (LoadStats, error) {
	start := time.Now()
	stats := LoadStats{Table: table, Files: len(files)}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return stats, fmt.Errorf("clear %s: %w", table, err)
	}

	rows, err := fill(tx)
	if err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit %s: %w", table, err)
	}

	stats.Rows = rows
	stats.Duration = time.Since(start)
	logging.Debug().
		Str("table", table).
		Int("files", stats.Files).
		Int64("rows", rows).
		Dur("duration", stats.Duration).
		Msg("Table reloaded")
	return stats, nil
}

func execRows(ctx context.Context, tx *sql.Tx, query string) (int64, error) {
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, wrapReadError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// wrapReadError marks CSV parse failures as invalid input. Missing files
// and I/O failures are reported as-is.
func wrapReadError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "No files found"),
		strings.Contains(msg, "No such file"),
		strings.Contains(msg, "IO Error"):
		return fmt.Errorf("read csv: %w", err)
	case strings.Contains(msg, "CSV Error"),
		strings.Contains(msg, "Invalid Input Error"),
		strings.Contains(msg, "Conversion Error"):
		return fmt.Errorf("%w: %w", recommend.ErrInvalidInput, err)
	default:
		return fmt.Errorf("read csv: %w", err)
	}
}

// quoteLiteral renders s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quoteLiteral(s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
