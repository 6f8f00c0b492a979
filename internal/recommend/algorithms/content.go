// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tomtom215/storelens/internal/recommend"
)

// Document is one item of text to index.
type Document struct {
	ID   int
	Text string
}

// ContentMatch is a ranked content similarity result.
type ContentMatch struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// ContentConfig configures a ContentIndex.
type ContentConfig struct {
	Vectorizer VectorizerConfig
}

// DefaultContentConfig returns default configuration.
func DefaultContentConfig() ContentConfig {
	return ContentConfig{
		Vectorizer: DefaultVectorizerConfig(),
	}
}

// BookFeatures returns the text used to index a book.
func BookFeatures(b recommend.Book) string {
	return b.Author + " " + b.Title
}

// ProductFeatures returns the text used to index a product.
func ProductFeatures(p recommend.Product) string {
	return p.Name
}

// ContentIndex ranks documents by TF-IDF cosine similarity. It is immutable
// once built.
type ContentIndex struct {
	ids     []int
	pos     map[int]int
	vectors []SparseVector
	vocab   int
}

// NewContentIndex vectorizes docs. Duplicate ids are rejected.
func NewContentIndex(docs []Document, cfg ContentConfig) (*ContentIndex, error) {
	idx := &ContentIndex{
		ids: make([]int, len(docs)),
		pos: make(map[int]int, len(docs)),
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		if _, dup := idx.pos[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %d", recommend.ErrInvalidInput, d.ID)
		}
		idx.ids[i] = d.ID
		idx.pos[d.ID] = i
		texts[i] = d.Text
	}

	v := NewVectorizer(cfg.Vectorizer)
	idx.vectors = v.FitTransform(texts)
	idx.vocab = v.VocabularySize()
	return idx, nil
}

// Len returns the number of indexed documents.
func (c *ContentIndex) Len() int {
	return len(c.ids)
}

// Has reports whether id is indexed.
func (c *ContentIndex) Has(id int) bool {
	_, ok := c.pos[id]
	return ok
}

// Similar ranks every other document against the selected ones. With more
// than one selected id, the element-wise mean of their vectors is used.
//
// Unknown ids are ignored. Fewer than two documents, an empty vocabulary or
// a selection with no known id yields an empty result.
func (c *ContentIndex) Similar(ctx context.Context, selectedIDs []int, topN int) ([]ContentMatch, error) {
	if len(c.ids) < 2 || c.vocab == 0 || len(selectedIDs) == 0 || topN <= 0 {
		return []ContentMatch{}, nil
	}

	// Unknown ids are skipped; the query is built from those that resolve.
	selected := make(map[int]struct{}, len(selectedIDs))
	order := make([]int, 0, len(selectedIDs))
	for _, id := range selectedIDs {
		if _, ok := c.pos[id]; !ok {
			continue
		}
		if _, dup := selected[id]; dup {
			continue
		}
		selected[id] = struct{}{}
		order = append(order, id)
	}
	if len(selected) == 0 {
		return []ContentMatch{}, nil
	}

	query := c.centroid(order)

	matches := make([]ContentMatch, 0, len(c.ids)-len(selected))
	for i, id := range c.ids {
		if _, skip := selected[id]; skip {
			continue
		}
		if i%512 == 0 && ContextCancelled(ctx) {
			return nil, ctx.Err()
		}
		matches = append(matches, ContentMatch{ID: id, Score: cosineSparse(query, c.vectors[i])})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}

func (c *ContentIndex) centroid(selected []int) SparseVector {
	if len(selected) == 1 {
		return c.vectors[c.pos[selected[0]]]
	}

	mean := make(SparseVector)
	for _, id := range selected {
		for k, w := range c.vectors[c.pos[id]] {
			mean[k] += w
		}
	}
	n := float64(len(selected))
	for k := range mean {
		mean[k] /= n
	}
	return mean
}

// cosineSparse is Dot divided by both norms. Document vectors are already
// unit length but a centroid is not.
func cosineSparse(a, b SparseVector) float64 {
	na, nb := Dot(a, a), Dot(b, b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (math.Sqrt(na) * math.Sqrt(nb))
}

// ContentBased recommends products with similar names.
type ContentBased struct {
	BaseAlgorithm
	config ContentConfig
	index  *ContentIndex
}

// NewContentBased creates a new content-based algorithm.
func NewContentBased(cfg ContentConfig) *ContentBased {
	return &ContentBased{
		BaseAlgorithm: NewBaseAlgorithm("content"),
		config:        cfg,
	}
}

// Train indexes the product catalog. Purchases are not used.
func (c *ContentBased) Train(ctx context.Context, products []recommend.Product, _ []recommend.Purchase) error {
	if ContextCancelled(ctx) {
		return ctx.Err()
	}

	docs := make([]Document, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		docs = append(docs, Document{ID: p.ID, Text: ProductFeatures(p)})
	}

	index, err := NewContentIndex(docs, c.config)
	if err != nil {
		return fmt.Errorf("index products: %w", err)
	}

	c.acquireTrainLock()
	defer c.releaseTrainLock()

	c.index = index
	c.markTrained()
	return nil
}

// SimilarItems returns products whose names are closest to the given ones.
func (c *ContentBased) SimilarItems(ctx context.Context, productIDs []int, topN int) ([]recommend.ScoredProduct, error) {
	c.acquirePredictLock()
	defer c.releasePredictLock()

	if c.index == nil {
		return []recommend.ScoredProduct{}, nil
	}

	matches, err := c.index.Similar(ctx, productIDs, topN)
	if err != nil {
		return nil, err
	}

	out := make([]recommend.ScoredProduct, len(matches))
	for i, m := range matches {
		out[i] = recommend.ScoredProduct{ProductID: m.ID, Score: m.Score}
	}
	return out, nil
}
