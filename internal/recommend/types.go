// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package recommend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// AggregateUser is the pseudo user id used by dashboards for "all users".
// The engine never accepts it as a recommendation target.
const AggregateUser = "ALL"

// ParseUserID parses a concrete user id. The aggregate pseudo-user yields
// ErrAggregateUser and anything else that is not a non-negative integer
// yields ErrInvalidInput.
func ParseUserID(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, AggregateUser) {
		return 0, ErrAggregateUser
	}
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: user id %q", ErrInvalidInput, s)
	}
	return id, nil
}

// Product is a catalog entry.
type Product struct {
	// ID is the unique product identifier.
	ID int `json:"product_id"`

	// Name is the display name. Names are expected to be unique but
	// duplicates are tolerated.
	Name string `json:"name"`

	// Category is the product category label.
	Category string `json:"category"`

	// Price is the unit price.
	Price float64 `json:"price"`
}

// Purchase is a single purchase event. Repeat purchases of the same
// product by the same user are separate rows.
type Purchase struct {
	// UserID is the purchasing user.
	UserID int `json:"user_id"`

	// ProductID references Product.ID.
	ProductID int `json:"product_id"`

	// Timestamp is when the purchase happened.
	Timestamp time.Time `json:"timestamp"`
}

// Book is a catalog entry for the content engine's book corpus.
type Book struct {
	ID            int     `json:"book_id"`
	Author        string  `json:"author"`
	Title         string  `json:"title"`
	AverageRating float64 `json:"average_rating"`
	RatingsCount  int     `json:"ratings_count"`
	ImageURL      string  `json:"image_url"`
}

// PairKey identifies a directed product pair.
type PairKey struct {
	A int
	B int
}

// CoOccurrence maps a directed product pair to the number of users who
// bought both. It is always symmetric.
type CoOccurrence map[PairKey]int

// ProductSimilarity is one row of the similarity table.
type ProductSimilarity struct {
	// Name1 is the source product name.
	Name1 string `json:"name1"`

	// Name2 is the related product name.
	Name2 string `json:"name2"`

	// Score is the rescaled relatedness in [0, 1].
	Score float64 `json:"score"`
}

// Recommendation is one ranked output row.
type Recommendation struct {
	ProductID int     `json:"product_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Score     float64 `json:"score"`

	// HasScore is false when the score must not be shown to callers,
	// as with category browsing. The score key is then left out of JSON.
	HasScore bool `json:"-"`
}

// MarshalJSON omits the score key when HasScore is false.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type row struct {
		ProductID int      `json:"product_id"`
		Name      string   `json:"name"`
		Category  string   `json:"category"`
		Price     float64  `json:"price"`
		Score     *float64 `json:"score,omitempty"`
	}
	out := row{
		ProductID: r.ProductID,
		Name:      r.Name,
		Category:  r.Category,
		Price:     r.Price,
	}
	if r.HasScore {
		score := r.Score
		out.Score = &score
	}
	return json.Marshal(out)
}

// ScoredProduct is an algorithm result before it is joined to the catalog.
type ScoredProduct struct {
	ProductID int     `json:"product_id"`
	Score     float64 `json:"score"`
}

// Mode selects how a recommendation request is answered.
type Mode int

const (
	// ModePurchaseHistory ranks products related to everything the user bought.
	ModePurchaseHistory Mode = iota
	// ModeCategory is ModePurchaseHistory restricted to a single category.
	ModeCategory
	// ModeTextSearch ranks products related to a single named product.
	ModeTextSearch
	// ModeCollaborative ranks products bought by similar users.
	ModeCollaborative
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModePurchaseHistory:
		return "purchase_history"
	case ModeCategory:
		return "category"
	case ModeTextSearch:
		return "text_search"
	case ModeCollaborative:
		return "collaborative"
	default:
		return "unknown"
	}
}

// ParseMode converts a wire name into a Mode. An empty string selects
// ModePurchaseHistory.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "purchase_history", "history":
		return ModePurchaseHistory, nil
	case "category":
		return ModeCategory, nil
	case "text_search", "search":
		return ModeTextSearch, nil
	case "collaborative":
		return ModeCollaborative, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, s)
	}
}

// Request is a recommendation request.
type Request struct {
	// UserID is the user to recommend for. Required for every mode
	// except ModeTextSearch.
	UserID int `json:"user_id"`

	// Mode selects the recommendation strategy.
	Mode Mode `json:"mode"`

	// Category filters results in ModeCategory.
	Category string `json:"category,omitempty"`

	// ProductName is the anchor product in ModeTextSearch.
	ProductName string `json:"product_name,omitempty"`

	// TopN is the number of results. Zero selects Config.Limits.DefaultTopN.
	TopN int `json:"top_n,omitempty"`

	// ExcludePurchased drops products the user already bought.
	ExcludePurchased bool `json:"exclude_purchased"`

	// RequestID is a unique identifier for tracing.
	RequestID string `json:"request_id,omitempty"`
}

// Response is a recommendation response.
type Response struct {
	// Items is the ranked result, never nil.
	Items []Recommendation `json:"items"`

	// Metadata contains timing and diagnostic information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains timing and diagnostic information.
type ResponseMetadata struct {
	RequestID string `json:"request_id"`
	UserID    int    `json:"user_id"`
	Mode      string `json:"mode"`

	// LatencyMS is the total recommendation latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`

	// CacheHit indicates whether the result was served from cache.
	CacheHit bool `json:"cache_hit"`

	// SnapshotVersion is the version of the data snapshot used.
	SnapshotVersion int `json:"snapshot_version"`

	// BuiltAt is when the snapshot was built.
	BuiltAt time.Time `json:"built_at"`

	// Timestamp is when the response was generated.
	Timestamp time.Time `json:"timestamp"`
}

// Algorithm is a trainable model that is refreshed on every rebuild.
type Algorithm interface {
	// Name returns the algorithm identifier (e.g., "collaborative", "content").
	Name() string

	// Train fits the model on the catalog and purchase history.
	Train(ctx context.Context, products []Product, purchases []Purchase) error

	// IsTrained returns whether the model has been trained.
	IsTrained() bool

	// Version returns the model version (incremented on each train).
	Version() int

	// LastTrainedAt returns when the model was last trained.
	LastTrainedAt() time.Time
}

// UserRecommender produces per-user rankings.
type UserRecommender interface {
	Algorithm

	// RecommendForUser returns up to topN products for the user, excluding
	// any product id in exclude. Unknown users yield an empty result.
	RecommendForUser(ctx context.Context, userID, topN int, exclude map[int]struct{}) ([]ScoredProduct, error)
}

// ItemRecommender produces rankings anchored on one or more products.
type ItemRecommender interface {
	Algorithm

	// SimilarItems returns up to topN products similar to the given ids,
	// never including the ids themselves.
	SimilarItems(ctx context.Context, productIDs []int, topN int) ([]ScoredProduct, error)
}

// Ranker produces a global, user-independent ranking.
type Ranker interface {
	Algorithm

	// TopK returns the k highest ranked products.
	TopK(k int) []ScoredProduct
}

// BuildStatus represents the current rebuild state.
type BuildStatus struct {
	// IsBuilding indicates whether a rebuild is in progress.
	IsBuilding bool `json:"is_building"`

	// Stage names the rebuild step currently running.
	Stage string `json:"stage,omitempty"`

	// SnapshotVersion is the version of the live snapshot.
	SnapshotVersion int `json:"snapshot_version"`

	// LastBuiltAt is when the last rebuild completed.
	LastBuiltAt time.Time `json:"last_built_at"`

	// LastBuildDurationMS is how long the last rebuild took.
	LastBuildDurationMS int64 `json:"last_build_duration_ms"`

	// LastError contains the last rebuild error, if any.
	LastError string `json:"last_error,omitempty"`

	ProductCount  int `json:"product_count"`
	PurchaseCount int `json:"purchase_count"`
	UserCount     int `json:"user_count"`
	PairCount     int `json:"pair_count"`
}

// Metrics contains engine counters.
type Metrics struct {
	RequestCount int64 `json:"request_count"`
	CacheHits    int64 `json:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses"`
	ErrorCount   int64 `json:"error_count"`
	RebuildCount int64 `json:"rebuild_count"`
}
