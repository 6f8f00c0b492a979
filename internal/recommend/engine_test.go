// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeProvider struct {
	products  []Product
	purchases []Purchase
	err       error
	calls     atomic.Int32
	block     chan struct{}
}

func (f *fakeProvider) GetProducts(ctx context.Context) ([]Product, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeProvider) GetPurchases(_ context.Context) ([]Purchase, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.purchases, nil
}

// fakeUserRecommender returns a fixed ranking, honouring exclusions.
type fakeUserRecommender struct {
	mu      sync.Mutex
	trained bool
	version int
	ranking []ScoredProduct
	trainFn func() error
}

func (f *fakeUserRecommender) Name() string { return "fake_user" }

func (f *fakeUserRecommender) Train(_ context.Context, _ []Product, _ []Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trainFn != nil {
		if err := f.trainFn(); err != nil {
			return err
		}
	}
	f.trained = true
	f.version++
	return nil
}

func (f *fakeUserRecommender) IsTrained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trained
}

func (f *fakeUserRecommender) Version() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.version
}

func (f *fakeUserRecommender) LastTrainedAt() time.Time { return time.Time{} }

func (f *fakeUserRecommender) RecommendForUser(_ context.Context, _, topN int, exclude map[int]struct{}) ([]ScoredProduct, error) {
	out := make([]ScoredProduct, 0, topN)
	for _, sp := range f.ranking {
		if _, ok := exclude[sp.ProductID]; ok {
			continue
		}
		if len(out) == topN {
			break
		}
		out = append(out, sp)
	}
	return out, nil
}

func newTestEngine(t *testing.T, dp DataProvider) *Engine {
	t.Helper()

	e, err := NewEngine(DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Close)
	if dp != nil {
		e.SetDataProvider(dp)
	}
	return e
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Limits.DefaultTopN = 0

	if _, err := NewEngine(cfg, zerolog.Nop()); err == nil {
		t.Error("NewEngine() error = nil, want error")
	}

	e, err := NewEngine(nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine(nil) error = %v", err)
	}
	e.Close()
}

func TestEngineRecommendBeforeRebuild(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	_, err := e.Recommend(context.Background(), Request{UserID: 1})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Recommend() error = %v, want ErrNotReady", err)
	}
	if e.Metrics().ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", e.Metrics().ErrorCount)
	}
}

func TestEngineRebuildWithoutProvider(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, nil)
	if err := e.Rebuild(context.Background()); err == nil {
		t.Error("Rebuild() error = nil, want error")
	}
}

func TestEngineRebuildAndRecommend(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	status := e.Status()
	if status.SnapshotVersion != 1 || status.PairCount != 4 || status.UserCount != 3 {
		t.Errorf("Status() = %+v, want version 1, 4 pairs, 3 users", status)
	}
	if status.IsBuilding {
		t.Error("IsBuilding = true after rebuild")
	}

	// user 3 bought p1 and p3; p2 is related to p1 with score 1.0.
	resp, err := e.Recommend(context.Background(), Request{UserID: 3, ExcludePurchased: true})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ProductID != 2 || resp.Items[0].Score != 1.0 {
		t.Errorf("Recommend() items = %+v, want [p2 1.0]", resp.Items)
	}
	if resp.Metadata.Mode != "purchase_history" || resp.Metadata.SnapshotVersion != 1 {
		t.Errorf("Metadata = %+v", resp.Metadata)
	}
	if resp.Metadata.RequestID == "" {
		t.Error("RequestID not generated")
	}
}

func TestEngineRebuildSnapshot(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})

	first, err := e.RebuildSnapshot(context.Background())
	if err != nil {
		t.Fatalf("RebuildSnapshot() error = %v", err)
	}
	if first != e.Snapshot() || first.Version() != 1 {
		t.Errorf("RebuildSnapshot() = version %d, want the stored snapshot at version 1", first.Version())
	}

	second, err := e.RebuildSnapshot(context.Background())
	if err != nil {
		t.Fatalf("RebuildSnapshot() error = %v", err)
	}
	if second.Version() != 2 || first.Version() != 1 {
		t.Errorf("versions = %d then %d, want 1 then 2", first.Version(), second.Version())
	}
}

func TestEngineRestore(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})

	rows := []ProductSimilarity{
		{Name1: "p2", Name2: "p3", Score: 0.8},
		{Name1: "p3", Name2: "p2", Score: 0.8},
		{Name1: "gone", Name2: "p2", Score: 1},
	}
	snap, err := e.Restore(context.Background(), rows)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if snap != e.Snapshot() || len(snap.Similarity()) != len(rows) {
		t.Errorf("Restore() stored %d rows, want the %d given", len(snap.Similarity()), len(rows))
	}

	// user 3 bought p1 and p3; only the restored p3 row applies.
	resp, err := e.Recommend(context.Background(), Request{UserID: 3, ExcludePurchased: true})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ProductID != 2 || resp.Items[0].Score != 0.8 {
		t.Errorf("Recommend() items = %+v, want [p2 0.8] from the restored table", resp.Items)
	}
}

func TestEngineRecommendModes(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})
	e.RegisterAlgorithm(&fakeUserRecommender{ranking: []ScoredProduct{
		{ProductID: 3, Score: 0.9},
		{ProductID: 2, Score: 0.4},
		{ProductID: 1, Score: 0.1},
	}})
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	tests := []struct {
		name    string
		req     Request
		wantIDs []int
		wantErr error
	}{
		{
			name:    "category",
			req:     Request{UserID: 3, Mode: ModeCategory, Category: "food", ExcludePurchased: true},
			wantIDs: []int{2},
		},
		{
			name:    "category requires name",
			req:     Request{UserID: 3, Mode: ModeCategory},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "text search",
			req:     Request{Mode: ModeTextSearch, ProductName: "p1"},
			wantIDs: []int{2, 3},
		},
		{
			name:    "text search requires product",
			req:     Request{Mode: ModeTextSearch},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "collaborative excludes purchased",
			req:     Request{UserID: 3, Mode: ModeCollaborative, ExcludePurchased: true},
			wantIDs: []int{2},
		},
		{
			name:    "collaborative top n",
			req:     Request{UserID: 3, Mode: ModeCollaborative, TopN: 2},
			wantIDs: []int{3, 2},
		},
		{
			name:    "negative top n",
			req:     Request{UserID: 3, TopN: -1},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown mode",
			req:     Request{UserID: 3, Mode: Mode(42)},
			wantErr: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, err := e.Recommend(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Recommend() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if len(resp.Items) != len(tt.wantIDs) {
				t.Fatalf("Recommend() returned %d items, want %d: %+v", len(resp.Items), len(tt.wantIDs), resp.Items)
			}
			for i, id := range tt.wantIDs {
				if resp.Items[i].ProductID != id {
					t.Errorf("item %d = %d, want %d", i, resp.Items[i].ProductID, id)
				}
			}
		})
	}
}

func TestEngineCollaborativeWithoutAlgorithm(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	_, err := e.Recommend(context.Background(), Request{UserID: 1, Mode: ModeCollaborative})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Recommend() error = %v, want ErrNotReady", err)
	}
}

func TestEngineCacheHitAndInvalidation(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	req := Request{UserID: 1, ExcludePurchased: true}
	first, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if first.Metadata.CacheHit {
		t.Error("first response marked as cache hit")
	}

	second, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !second.Metadata.CacheHit {
		t.Error("second response not served from cache")
	}

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	third, err := e.Recommend(context.Background(), req)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if third.Metadata.CacheHit {
		t.Error("response after rebuild served from stale cache")
	}
	if third.Metadata.SnapshotVersion != 2 {
		t.Errorf("SnapshotVersion = %d, want 2", third.Metadata.SnapshotVersion)
	}

	m := e.Metrics()
	if m.CacheHits != 1 || m.CacheMisses != 2 || m.RebuildCount != 2 {
		t.Errorf("Metrics() = %+v, want 1 hit, 2 misses, 2 rebuilds", m)
	}
}

func TestEngineRebuildProviderError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("store offline")
	e := newTestEngine(t, &fakeProvider{err: wantErr})

	err := e.Rebuild(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("Rebuild() error = %v, want %v", err, wantErr)
	}
	if e.Snapshot() != nil {
		t.Error("snapshot installed after failed rebuild")
	}
	if e.Status().LastError == "" {
		t.Error("LastError not recorded")
	}
}

func TestEngineRebuildInProgress(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	provider := &fakeProvider{products: products, purchases: purchases, block: make(chan struct{})}
	e := newTestEngine(t, provider)

	done := make(chan error, 1)
	go func() { done <- e.Rebuild(context.Background()) }()

	// Wait until the first rebuild is inside the provider.
	deadline := time.Now().Add(2 * time.Second)
	for provider.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := e.Rebuild(context.Background()); !errors.Is(err, ErrRebuildInProgress) {
		t.Errorf("concurrent Rebuild() error = %v, want ErrRebuildInProgress", err)
	}

	close(provider.block)
	if err := <-done; err != nil {
		t.Fatalf("first Rebuild() error = %v", err)
	}
}

func TestEngineAlgorithmFailureDoesNotAbortRebuild(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})
	e.RegisterAlgorithm(&fakeUserRecommender{trainFn: func() error { return errors.New("boom") }})

	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if e.Snapshot() == nil {
		t.Error("snapshot missing after rebuild")
	}
}

func TestEngineSimilarProducts(t *testing.T) {
	t.Parallel()

	products, purchases := threeUserFixture()
	e := newTestEngine(t, &fakeProvider{products: products, purchases: purchases})

	if _, _, err := e.SimilarProducts(1); !errors.Is(err, ErrNotReady) {
		t.Errorf("SimilarProducts() before rebuild error = %v, want ErrNotReady", err)
	}
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	byCat, byPrice, err := e.SimilarProducts(1)
	if err != nil {
		t.Fatalf("SimilarProducts() error = %v", err)
	}
	if len(byCat) != 1 || byCat[0].ID != 2 {
		t.Errorf("byCategory = %+v, want [2]", byCat)
	}
	if len(byPrice) != 1 || byPrice[0].ID != 2 {
		t.Errorf("byPrice = %+v, want [2]", byPrice)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModePurchaseHistory},
		{in: "purchase_history", want: ModePurchaseHistory},
		{in: "Category", want: ModeCategory},
		{in: "search", want: ModeTextSearch},
		{in: "collaborative", want: ModeCollaborative},
		{in: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("ParseMode(%q) error = %v, want ErrInvalidInput", tt.in, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if back, _ := ParseMode(got.String()); back != got {
			t.Errorf("ParseMode(%q.String()) = %v", got, back)
		}
	}
}

func TestParseUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    int
		wantErr error
	}{
		{in: "42", want: 42},
		{in: " 0 ", want: 0},
		{in: "ALL", wantErr: ErrAggregateUser},
		{in: "all", wantErr: ErrAggregateUser},
		{in: "", wantErr: ErrInvalidInput},
		{in: "-3", wantErr: ErrInvalidInput},
		{in: "bob", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		got, err := ParseUserID(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseUserID(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseUserID(%q) = %d, %v, want %d", tt.in, got, err, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad policy", mutate: func(c *Config) { c.Similarity.DegeneratePolicy = "ignore" }, wantErr: true},
		{name: "constant out of range", mutate: func(c *Config) { c.Similarity.ConstantScore = 1.5 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Rebuild.Timeout = 0 }, wantErr: true},
		{name: "max below default", mutate: func(c *Config) { c.Limits.MaxTopN = 5 }, wantErr: true},
		{name: "negative band", mutate: func(c *Config) { c.Browse.PriceBand = -1 }, wantErr: true},
		{name: "cache disabled ignores ttl", mutate: func(c *Config) { c.Cache.Enabled = false; c.Cache.TTL = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigScoreOptions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	opts := cfg.ScoreOptions()
	if opts.Degenerate != DegenerateConstant || opts.ConstantScore != 0.5 {
		t.Errorf("ScoreOptions() = %+v, want constant 0.5", opts)
	}

	clone := cfg.Clone()
	clone.Limits.MaxTopN = 1
	if cfg.Limits.MaxTopN == 1 {
		t.Error("Clone() shares state with original")
	}
}
