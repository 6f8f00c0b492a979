// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Package storage persists the product similarity table.
//
// # File Format
//
// The table is a CSV file with the header name1,name2,score and scores
// formatted to four decimal places. Files are written as UTF-8 with a byte
// order mark so spreadsheet tools keep non-ASCII product names intact. The
// reader accepts files with or without the mark.
//
// # Thread Safety
//
// Store serializes writers and replaces the file atomically, so readers
// never observe a partially written table.
package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/tomtom215/storelens/internal/recommend"
)

// Header is the required first record of a similarity file.
var Header = []string{"name1", "name2", "score"}

// WriteSimilarityCSV encodes rows as UTF-8 CSV with a leading BOM.
func WriteSimilarityCSV(w io.Writer, rows []recommend.ProductSimilarity) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, 3)
	for i, r := range rows {
		if r.Score < 0 || r.Score > 1 || math.IsNaN(r.Score) {
			return fmt.Errorf("%w: row %d score %v outside [0,1]", recommend.ErrInvalidInput, i, r.Score)
		}
		record[0] = r.Name1
		record[1] = r.Name2
		record[2] = strconv.FormatFloat(r.Score, 'f', 4, 64)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("flush encoder: %w", err)
	}
	return nil
}

// ReadSimilarityCSV decodes a similarity file. A missing or wrong header,
// a malformed record, or a score outside [0,1] yields ErrInvalidInput.
func ReadSimilarityCSV(r io.Reader) ([]recommend.ProductSimilarity, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty similarity file", recommend.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", recommend.ErrInvalidInput, err)
	}
	for i, want := range Header {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return nil, fmt.Errorf("%w: header column %d is %q, want %q",
				recommend.ErrInvalidInput, i+1, header[i], want)
		}
	}

	rows := make([]recommend.ProductSimilarity, 0, 64)
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", recommend.ErrInvalidInput, err)
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad score %q", recommend.ErrInvalidInput, line, record[2])
		}
		if score < 0 || score > 1 || math.IsNaN(score) {
			return nil, fmt.Errorf("%w: line %d: score %v outside [0,1]", recommend.ErrInvalidInput, line, score)
		}

		rows = append(rows, recommend.ProductSimilarity{
			Name1: record[0],
			Name2: record[1],
			Score: score,
		})
	}
	return rows, nil
}
