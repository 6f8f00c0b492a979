// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/storelens/internal/cache"
)

// Note: apart from the leaf cache package this package does not import other
// internal packages. The DataProvider interface lets the database layer feed
// the engine without circular imports.

// DataProvider loads the tables a rebuild needs. It is typically
// implemented by the database layer.
type DataProvider interface {
	// GetProducts returns the product catalog.
	GetProducts(ctx context.Context) ([]Product, error)

	// GetPurchases returns every purchase row.
	GetPurchases(ctx context.Context) ([]Purchase, error)
}

// Engine serves recommendations from an atomically swapped Snapshot.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger

	algorithms []Algorithm
	algMu      sync.RWMutex

	// rebuildMu serializes rebuilds; readers never take it.
	rebuildMu sync.Mutex
	snapshot  atomic.Pointer[Snapshot]
	version   atomic.Int32

	status   BuildStatus
	statusMu sync.RWMutex

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
	rebuildCount atomic.Int64

	cache *cache.Cache[*Response]

	dataProvider DataProvider
}

// NewEngine creates a new recommendation engine. A nil cfg selects
// DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{
		config:     cfg,
		logger:     logger.With().Str("component", "recommend").Logger(),
		algorithms: make([]Algorithm, 0),
	}
	if cfg.Cache.Enabled {
		e.cache = cache.New[*Response](cfg.Cache.TTL)
	}
	return e, nil
}

// Close releases background resources held by the engine.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

// SetDataProvider sets the data provider used by Rebuild.
func (e *Engine) SetDataProvider(dp DataProvider) {
	e.dataProvider = dp
}

// RegisterAlgorithm adds an algorithm that is retrained on every rebuild.
func (e *Engine) RegisterAlgorithm(alg Algorithm) {
	e.algMu.Lock()
	defer e.algMu.Unlock()

	e.algorithms = append(e.algorithms, alg)
	e.logger.Info().
		Str("algorithm", alg.Name()).
		Msg("registered algorithm")
}

// getAlgorithms returns a copy of registered algorithms.
func (e *Engine) getAlgorithms() []Algorithm {
	e.algMu.RLock()
	defer e.algMu.RUnlock()

	out := make([]Algorithm, len(e.algorithms))
	copy(out, e.algorithms)
	return out
}

// Snapshot returns the live snapshot, or nil before the first rebuild.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Recommend answers a recommendation request against the live snapshot.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	snap := e.snapshot.Load()
	if snap == nil {
		e.errorCount.Add(1)
		return nil, ErrNotReady
	}

	req, err := e.prepareRequest(req)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}

	logger := e.createRequestLogger(req)
	logger.Debug().Msg("processing recommendation request")

	key := e.cacheKey(req, snap)
	if resp := e.tryGetCachedResponse(key, start, logger); resp != nil {
		return resp, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.config.Limits.RequestTimeout)
	defer cancel()

	items, err := e.dispatch(reqCtx, snap, req)
	if err != nil {
		e.errorCount.Add(1)
		return nil, fmt.Errorf("recommend %s: %w", req.Mode, err)
	}

	resp := &Response{
		Items:    items,
		Metadata: e.buildResponseMetadata(req, snap, start, false),
	}
	if e.cache != nil {
		e.cache.Set(key, resp)
	}

	logger.Debug().
		Int("returned", len(items)).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation complete")

	return resp, nil
}

// prepareRequest applies defaults and validates mode arguments.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) (Request, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	switch {
	case req.TopN < 0:
		return req, fmt.Errorf("%w: top_n must be non-negative, got %d", ErrInvalidInput, req.TopN)
	case req.TopN == 0:
		req.TopN = e.config.Limits.DefaultTopN
	case req.TopN > e.config.Limits.MaxTopN:
		req.TopN = e.config.Limits.MaxTopN
	}

	switch req.Mode {
	case ModePurchaseHistory, ModeCollaborative:
	case ModeCategory:
		if req.Category == "" {
			return req, fmt.Errorf("%w: category is required in %s mode", ErrInvalidInput, req.Mode)
		}
	case ModeTextSearch:
		if req.ProductName == "" {
			return req, fmt.Errorf("%w: product name is required in %s mode", ErrInvalidInput, req.Mode)
		}
	default:
		return req, fmt.Errorf("%w: unknown mode %d", ErrInvalidInput, int(req.Mode))
	}

	return req, nil
}

// dispatch routes a prepared request to its mode implementation.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) dispatch(ctx context.Context, snap *Snapshot, req Request) ([]Recommendation, error) {
	switch req.Mode {
	case ModePurchaseHistory:
		return RecommendForUser(snap, req.UserID, req.TopN, req.ExcludePurchased), nil
	case ModeCategory:
		return RecommendForCategory(snap, req.UserID, req.Category, req.TopN, req.ExcludePurchased), nil
	case ModeTextSearch:
		return RecommendForProduct(snap, req.ProductName, req.TopN), nil
	case ModeCollaborative:
		return e.recommendCollaborative(ctx, snap, req)
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidInput, int(req.Mode))
	}
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) recommendCollaborative(ctx context.Context, snap *Snapshot, req Request) ([]Recommendation, error) {
	var rec UserRecommender
	for _, alg := range e.getAlgorithms() {
		if ur, ok := alg.(UserRecommender); ok && ur.IsTrained() {
			rec = ur
			break
		}
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: no trained user recommender registered", ErrNotReady)
	}

	var exclude map[int]struct{}
	if req.ExcludePurchased {
		exclude = snap.PurchasedSet(req.UserID)
	}

	scored, err := rec.RecommendForUser(ctx, req.UserID, req.TopN, exclude)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rec.Name(), err)
	}
	return Join(snap, scored), nil
}

// SimilarContent ranks products by text similarity to the given products
// using the first trained ItemRecommender.
func (e *Engine) SimilarContent(ctx context.Context, productIDs []int, topN int) ([]Recommendation, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	topN = e.clampTopN(topN)

	for _, alg := range e.getAlgorithms() {
		ir, ok := alg.(ItemRecommender)
		if !ok || !ir.IsTrained() {
			continue
		}
		scored, err := ir.SimilarItems(ctx, productIDs, topN)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ir.Name(), err)
		}
		return Join(snap, scored), nil
	}
	return nil, fmt.Errorf("%w: no trained item recommender registered", ErrNotReady)
}

// Popular returns the k most purchased products using the first trained
// Ranker.
func (e *Engine) Popular(k int) ([]Recommendation, error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	k = e.clampTopN(k)

	for _, alg := range e.getAlgorithms() {
		if r, ok := alg.(Ranker); ok && r.IsTrained() {
			return Join(snap, r.TopK(k)), nil
		}
	}
	return nil, fmt.Errorf("%w: no trained ranker registered", ErrNotReady)
}

// SimilarProducts returns products sharing productID's category and
// products in its price band.
func (e *Engine) SimilarProducts(productID int) (byCategory, byPrice []Product, err error) {
	snap := e.snapshot.Load()
	if snap == nil {
		return nil, nil, ErrNotReady
	}
	return SimilarByCategory(snap, productID, e.config.Browse.Limit),
		SimilarByPrice(snap, productID, e.config.Browse.PriceBand, e.config.Browse.Limit),
		nil
}

func (e *Engine) clampTopN(n int) int {
	if n <= 0 {
		return e.config.Limits.DefaultTopN
	}
	if n > e.config.Limits.MaxTopN {
		return e.config.Limits.MaxTopN
	}
	return n
}

// createRequestLogger creates a logger with request context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) createRequestLogger(req Request) zerolog.Logger {
	return e.logger.With().
		Str("request_id", req.RequestID).
		Int("user_id", req.UserID).
		Str("mode", req.Mode.String()).
		Logger()
}

// cacheKey identifies a prepared request against a snapshot version, so
// entries from older snapshots can never match.
//
//nolint:gocritic // hugeParam: req passed by value for simplicity
func (e *Engine) cacheKey(req Request, snap *Snapshot) string {
	return cache.GenerateKey("rec", struct {
		UserID   int    `json:"u"`
		Mode     int    `json:"m"`
		Category string `json:"c"`
		Product  string `json:"p"`
		TopN     int    `json:"n"`
		Exclude  bool   `json:"x"`
		Version  int    `json:"v"`
	}{req.UserID, int(req.Mode), req.Category, req.ProductName, req.TopN, req.ExcludePurchased, snap.Version()})
}

// tryGetCachedResponse returns a copy of a cached response, or nil.
func (e *Engine) tryGetCachedResponse(key string, start time.Time, logger zerolog.Logger) *Response {
	if e.cache == nil {
		return nil
	}

	cached, ok := e.cache.Get(key)
	if !ok {
		e.cacheMisses.Add(1)
		return nil
	}

	e.cacheHits.Add(1)
	items := make([]Recommendation, len(cached.Items))
	copy(items, cached.Items)
	resp := &Response{Items: items, Metadata: cached.Metadata}
	resp.Metadata.CacheHit = true
	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
	logger.Debug().Msg("cache hit")
	return resp
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) buildResponseMetadata(req Request, snap *Snapshot, start time.Time, cacheHit bool) ResponseMetadata {
	return ResponseMetadata{
		RequestID:       req.RequestID,
		UserID:          req.UserID,
		Mode:            req.Mode.String(),
		LatencyMS:       time.Since(start).Milliseconds(),
		CacheHit:        cacheHit,
		SnapshotVersion: snap.Version(),
		BuiltAt:         snap.BuiltAt(),
		Timestamp:       time.Now(),
	}
}

// Rebuild reloads the catalog and purchases, recomputes the similarity
// table, retrains registered algorithms and swaps in a new snapshot.
// It returns ErrRebuildInProgress if another rebuild is running.
func (e *Engine) Rebuild(ctx context.Context) error {
	_, err := e.RebuildSnapshot(ctx)
	return err
}

// RebuildSnapshot is Rebuild returning the snapshot it stored. Callers that
// persist the table must save this snapshot, not whatever Snapshot returns
// later, since another rebuild may have replaced it in between.
func (e *Engine) RebuildSnapshot(ctx context.Context) (*Snapshot, error) {
	return e.build(ctx, "rebuild", func(ctx context.Context, products []Product, purchases []Purchase) ([]ProductSimilarity, error) {
		return BuildSimilarity(ctx, products, purchases, e.config.Rebuild.ValidateReferences, e.config.ScoreOptions())
	})
}

// Restore serves a previously persisted similarity table. The catalog and
// purchases are still loaded from the data provider and the algorithms
// trained on them; only the pair scoring is skipped. Rows naming products
// missing from the catalog never join and are harmless.
func (e *Engine) Restore(ctx context.Context, rows []ProductSimilarity) (*Snapshot, error) {
	return e.build(ctx, "restore", func(context.Context, []Product, []Purchase) ([]ProductSimilarity, error) {
		return rows, nil
	})
}

type similarityFunc func(ctx context.Context, products []Product, purchases []Purchase) ([]ProductSimilarity, error)

func (e *Engine) build(ctx context.Context, kind string, similarity similarityFunc) (*Snapshot, error) {
	if !e.rebuildMu.TryLock() {
		return nil, ErrRebuildInProgress
	}
	defer e.rebuildMu.Unlock()

	if e.dataProvider == nil {
		return nil, fmt.Errorf("data provider not set")
	}

	start := time.Now()
	e.initializeStatus()
	e.logger.Info().Str("kind", kind).Msg("starting snapshot build")

	snap, err := e.rebuild(ctx, similarity)
	e.finalizeStatus(start, err)
	if err != nil {
		e.errorCount.Add(1)
		e.logger.Error().Err(err).Str("kind", kind).Msg("snapshot build failed")
		return nil, err
	}

	status := e.Status()
	e.logger.Info().
		Str("kind", kind).
		Int("version", status.SnapshotVersion).
		Int("pairs", status.PairCount).
		Int64("duration_ms", status.LastBuildDurationMS).
		Msg("snapshot build complete")
	return snap, nil
}

func (e *Engine) rebuild(ctx context.Context, similarity similarityFunc) (*Snapshot, error) {
	buildCtx, cancel := context.WithTimeout(ctx, e.config.Rebuild.Timeout)
	defer cancel()

	e.setStage("load")
	products, purchases, err := e.loadData(buildCtx)
	if err != nil {
		return nil, err
	}

	e.setStage("similarity")
	rows, err := similarity(buildCtx, products, purchases)
	if err != nil {
		return nil, err
	}

	e.setStage("algorithms")
	e.trainAllAlgorithms(buildCtx, products, purchases)

	version := int(e.version.Add(1))
	snap := NewSnapshot(products, purchases, rows, version, time.Now())
	e.snapshot.Store(snap)
	e.rebuildCount.Add(1)

	if e.cache != nil {
		e.cache.Clear()
	}

	e.statusMu.Lock()
	e.status.SnapshotVersion = version
	e.status.LastBuiltAt = snap.BuiltAt()
	e.status.ProductCount = len(products)
	e.status.PurchaseCount = len(purchases)
	e.status.UserCount = snap.UserCount()
	e.status.PairCount = len(rows)
	e.statusMu.Unlock()

	return snap, nil
}

// loadData fetches the catalog and purchases concurrently.
func (e *Engine) loadData(ctx context.Context) ([]Product, []Purchase, error) {
	var (
		products  []Product
		purchases []Purchase
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = e.dataProvider.GetProducts(gctx)
		if err != nil {
			return fmt.Errorf("get products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		purchases, err = e.dataProvider.GetPurchases(gctx)
		if err != nil {
			return fmt.Errorf("get purchases: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	e.logger.Info().
		Int("products", len(products)).
		Int("purchases", len(purchases)).
		Msg("loaded rebuild data")
	return products, purchases, nil
}

// trainAllAlgorithms trains each registered algorithm. Failures are logged
// and do not abort the rebuild; the failed algorithm keeps its old model.
func (e *Engine) trainAllAlgorithms(ctx context.Context, products []Product, purchases []Purchase) {
	for _, alg := range e.getAlgorithms() {
		if err := alg.Train(ctx, products, purchases); err != nil {
			e.logger.Error().
				Str("algorithm", alg.Name()).
				Err(err).
				Msg("algorithm training failed")
			continue
		}

		e.logger.Debug().
			Str("algorithm", alg.Name()).
			Int("version", alg.Version()).
			Msg("algorithm training complete")
	}
}

func (e *Engine) initializeStatus() {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.status.IsBuilding = true
	e.status.LastError = ""
}

func (e *Engine) setStage(stage string) {
	e.statusMu.Lock()
	e.status.Stage = stage
	e.statusMu.Unlock()
}

func (e *Engine) finalizeStatus(start time.Time, err error) {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	e.status.IsBuilding = false
	e.status.Stage = ""
	e.status.LastBuildDurationMS = time.Since(start).Milliseconds()
	if err != nil {
		e.status.LastError = err.Error()
	}
}

// Status returns the current rebuild status.
func (e *Engine) Status() BuildStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()

	return e.status
}

// Metrics returns the current engine counters.
func (e *Engine) Metrics() Metrics {
	return Metrics{
		RequestCount: e.requestCount.Load(),
		CacheHits:    e.cacheHits.Load(),
		CacheMisses:  e.cacheMisses.Load(),
		ErrorCount:   e.errorCount.Load(),
		RebuildCount: e.rebuildCount.Load(),
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// IsClientError reports whether err was caused by the request rather than
// the engine.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrAggregateUser)
}
