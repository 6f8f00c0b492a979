// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// DegeneratePolicy decides how ScorePairs handles a zero-width score range.
type DegeneratePolicy int

const (
	// DegenerateError fails with ErrDegenerateScoreRange.
	DegenerateError DegeneratePolicy = iota
	// DegenerateConstant assigns ScoreOptions.ConstantScore to every
	// non-identity pair.
	DegenerateConstant
)

// String returns the configuration name of the policy.
func (p DegeneratePolicy) String() string {
	switch p {
	case DegenerateError:
		return "error"
	case DegenerateConstant:
		return "constant"
	default:
		return "unknown"
	}
}

// ParseDegeneratePolicy converts a configuration name into a policy.
func ParseDegeneratePolicy(s string) (DegeneratePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return DegenerateError, nil
	case "constant":
		return DegenerateConstant, nil
	default:
		return 0, fmt.Errorf("similarity.degenerate_policy must be \"error\" or \"constant\", got %q", s)
	}
}

// ScoreOptions configures ScorePairs. The zero value fails on a degenerate
// range.
type ScoreOptions struct {
	Degenerate    DegeneratePolicy
	ConstantScore float64
}

// scoreDecimals is the precision of raw and rescaled scores.
const scoreDecimals = 4

// ScorePairs converts co-occurrence counts into the rescaled similarity table.
//
// totals must hold the purchase row count of every product in co, and names
// must map every product id in co to its name. Rows are returned sorted by
// (Name1, Name2).
func ScorePairs(co CoOccurrence, totals map[int]int, names map[int]string, opts ScoreOptions) ([]ProductSimilarity, error) {
	if len(co) == 0 {
		return []ProductSimilarity{}, nil
	}

	rows := make([]ProductSimilarity, 0, len(co))
	for pair, count := range co {
		nameA, ok := names[pair.A]
		if !ok {
			return nil, fmt.Errorf("%w: product %d has no name", ErrInvalidInput, pair.A)
		}
		nameB, ok := names[pair.B]
		if !ok {
			return nil, fmt.Errorf("%w: product %d has no name", ErrInvalidInput, pair.B)
		}

		raw, err := Jaccard(count, totals[pair.A], totals[pair.B])
		if err != nil {
			return nil, fmt.Errorf("pair (%d, %d): %w", pair.A, pair.B, err)
		}

		rows = append(rows, ProductSimilarity{
			Name1: nameA,
			Name2: nameB,
			Score: raw,
		})
	}

	if err := rescale(rows, opts); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name1 != rows[j].Name1 {
			return rows[i].Name1 < rows[j].Name1
		}
		if rows[i].Name2 != rows[j].Name2 {
			return rows[i].Name2 < rows[j].Name2
		}
		return rows[i].Score > rows[j].Score
	})

	return rows, nil
}

// rescale pins identity rows to 1.0 and min-max rescales the rest in place.
func rescale(rows []ProductSimilarity, opts ScoreOptions) error {
	minRaw, maxRaw := math.Inf(1), math.Inf(-1)
	nonIdentity := 0
	for i := range rows {
		if rows[i].Name1 == rows[i].Name2 {
			rows[i].Score = 1.0
			continue
		}
		nonIdentity++
		minRaw = math.Min(minRaw, rows[i].Score)
		maxRaw = math.Max(maxRaw, rows[i].Score)
	}

	if nonIdentity == 0 {
		return nil
	}

	rang := maxRaw - minRaw
	if rang == 0 {
		if opts.Degenerate != DegenerateConstant {
			return fmt.Errorf("%w: all %d pairs scored %.4f", ErrDegenerateScoreRange, nonIdentity, minRaw)
		}
		for i := range rows {
			if rows[i].Name1 != rows[i].Name2 {
				rows[i].Score = opts.ConstantScore
			}
		}
		return nil
	}

	for i := range rows {
		if rows[i].Name1 == rows[i].Name2 {
			continue
		}
		rows[i].Score = roundScore((rows[i].Score - minRaw) / rang)
	}
	return nil
}

// Jaccard returns count / (totalA + totalB - count) rounded to 4 digits.
// Totals are purchase rows, so count can never exceed either of them.
func Jaccard(count, totalA, totalB int) (float64, error) {
	if count <= 0 || count > totalA || count > totalB {
		return 0, fmt.Errorf("%w: co-occurrence %d inconsistent with totals %d/%d",
			ErrInvalidInput, count, totalA, totalB)
	}
	return roundScore(float64(count) / float64(totalA+totalB-count)), nil
}

// roundScore rounds to scoreDecimals places.
func roundScore(v float64) float64 {
	p := math.Pow10(scoreDecimals)
	return math.Round(v*p) / p
}

// BuildSimilarity runs the full batch pipeline: optional reference check,
// co-occurrence, purchase totals and scoring.
func BuildSimilarity(ctx context.Context, products []Product, purchases []Purchase, validate bool, opts ScoreOptions) ([]ProductSimilarity, error) {
	if validate {
		if err := ValidatePurchases(purchases, products); err != nil {
			return nil, err
		}
	}

	co, err := BuildCoOccurrence(ctx, purchases)
	if err != nil {
		return nil, fmt.Errorf("build co-occurrence: %w", err)
	}

	names := make(map[int]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	rows, err := ScorePairs(co, PurchaseTotals(purchases), names, opts)
	if err != nil {
		return nil, fmt.Errorf("score pairs: %w", err)
	}
	return rows, nil
}
