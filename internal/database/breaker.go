// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/storelens/internal/logging"
	"github.com/tomtom215/storelens/internal/metrics"
	"github.com/tomtom215/storelens/internal/recommend"
)

// BreakerName labels the data source circuit breaker in metrics and logs.
const BreakerName = "data-source"

// BookSource is implemented by sources that can also load the books table.
type BookSource interface {
	GetBooks(ctx context.Context) ([]recommend.Book, error)
}

// BreakerSource wraps a DataProvider with a circuit breaker so that a
// rebuild loop does not keep hammering a broken store. After Failures
// consecutive failed loads every call is rejected with
// gobreaker.ErrOpenState until Timeout has passed; one trial load is then
// let through.
//
// The breaker uses real time for its timeout. Tests use a short timeout
// rather than faking the clock.
type BreakerSource struct {
	src  recommend.DataProvider
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

var _ recommend.DataProvider = (*BreakerSource)(nil)

// NewBreakerSource wraps src. failures must be positive; a zero timeout
// selects one minute.
func NewBreakerSource(src recommend.DataProvider, failures uint32, timeout time.Duration) *BreakerSource {
	if failures == 0 {
		failures = 1
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	name := BreakerName

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= failures
			if trip {
				logging.Warn().
					Str("breaker", name).
					Uint32("consecutive_failures", counts.ConsecutiveFailures).
					Msg("opening circuit")
			}
			return trip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("circuit state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerSource{src: src, cb: cb, name: name}
}

// State returns the current breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.cb.State()
}

// GetProducts loads the catalog through the breaker.
func (b *BreakerSource) GetProducts(ctx context.Context) ([]recommend.Product, error) {
	return castResult[[]recommend.Product](b.execute("products", func() (interface{}, error) {
		return b.src.GetProducts(ctx)
	}))
}

// GetPurchases loads the purchases through the breaker.
func (b *BreakerSource) GetPurchases(ctx context.Context) ([]recommend.Purchase, error) {
	return castResult[[]recommend.Purchase](b.execute("purchases", func() (interface{}, error) {
		return b.src.GetPurchases(ctx)
	}))
}

// GetBooks loads the books through the breaker. It returns ErrNoBooks when
// the wrapped source has no books table.
func (b *BreakerSource) GetBooks(ctx context.Context) ([]recommend.Book, error) {
	bs, ok := b.src.(BookSource)
	if !ok {
		return nil, ErrNoBooks
	}
	books, err := castResult[[]recommend.Book](b.execute("books", func() (interface{}, error) {
		books, err := bs.GetBooks(ctx)
		if errors.Is(err, ErrNoBooks) {
			// Not configured is not a store failure.
			return []recommend.Book(nil), nil
		}
		return books, err
	}))
	if err == nil && books == nil {
		return nil, ErrNoBooks
	}
	return books, err
}

func (b *BreakerSource) execute(table string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	result, err := b.cb.Execute(fn)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
			metrics.RecordDataLoad(table, elapsed, err, "circuit_open")
			logging.Warn().Err(err).Str("table", table).Msg("load rejected by circuit breaker")
			return nil, fmt.Errorf("load %s: %w", table, err)
		}

		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(float64(b.cb.Counts().ConsecutiveFailures))
		errorType := "other"
		if errors.Is(err, recommend.ErrInvalidInput) {
			errorType = "invalid_input"
		}
		metrics.RecordDataLoad(table, elapsed, err, errorType)
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	metrics.RecordDataLoad(table, elapsed, nil, "")
	return result, nil
}

// castResult type-asserts a breaker result.
func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
