// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

package algorithms

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenRegex matches runs of two or more word characters.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// VectorizerConfig controls vocabulary construction.
type VectorizerConfig struct {
	// MaxFeatures caps the vocabulary at the most frequent terms.
	// Default: 1000
	MaxFeatures int

	// MaxNGram is the longest n-gram extracted. 1 for unigrams only.
	// Default: 2
	MaxNGram int

	// StopWords removes common English words before n-gram extraction.
	// Default: true
	StopWords bool
}

// DefaultVectorizerConfig returns default configuration.
func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{
		MaxFeatures: 1000,
		MaxNGram:    2,
		StopWords:   true,
	}
}

// SparseVector maps a vocabulary index to its weight.
type SparseVector map[int]float64

// Vectorizer turns documents into L2-normalized TF-IDF vectors.
//
// IDF is smoothed: idf(t) = ln((1+n)/(1+df(t))) + 1, so terms present in
// every document still carry weight.
type Vectorizer struct {
	config     VectorizerConfig
	vocabulary map[string]int
	terms      []string
	idf        []float64
}

// NewVectorizer creates an unfitted vectorizer.
func NewVectorizer(cfg VectorizerConfig) *Vectorizer {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 1000
	}
	if cfg.MaxNGram <= 0 {
		cfg.MaxNGram = 1
	}
	return &Vectorizer{
		config:     cfg,
		vocabulary: make(map[string]int),
	}
}

// FitTransform learns the vocabulary and IDF weights from docs and returns
// one vector per document.
func (v *Vectorizer) FitTransform(docs []string) []SparseVector {
	analyzed := make([][]string, len(docs))
	corpusCounts := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		terms := v.analyze(doc)
		analyzed[i] = terms

		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			corpusCounts[t]++
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				docFreq[t]++
			}
		}
	}

	v.terms = selectFeatures(corpusCounts, v.config.MaxFeatures)
	v.vocabulary = make(map[string]int, len(v.terms))
	v.idf = make([]float64, len(v.terms))
	n := float64(len(docs))
	for i, t := range v.terms {
		v.vocabulary[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[t]))) + 1
	}

	out := make([]SparseVector, len(docs))
	for i, terms := range analyzed {
		out[i] = v.weigh(terms)
	}
	return out
}

// Transform vectorizes a document against the fitted vocabulary. Terms not
// in the vocabulary are ignored.
func (v *Vectorizer) Transform(doc string) SparseVector {
	return v.weigh(v.analyze(doc))
}

// VocabularySize returns the number of fitted terms.
func (v *Vectorizer) VocabularySize() int {
	return len(v.terms)
}

// Terms returns the fitted vocabulary in index order.
func (v *Vectorizer) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

func (v *Vectorizer) weigh(terms []string) SparseVector {
	vec := make(SparseVector)
	for _, t := range terms {
		if idx, ok := v.vocabulary[t]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for idx, tf := range vec {
		w := tf * v.idf[idx]
		vec[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}
	return vec
}

// analyze lowercases, tokenizes, drops stop words and emits n-grams.
func (v *Vectorizer) analyze(doc string) []string {
	tokens := tokenize(doc)
	if v.config.StopWords {
		kept := tokens[:0]
		for _, t := range tokens {
			if _, stop := englishStopWords[t]; !stop {
				kept = append(kept, t)
			}
		}
		tokens = kept
	}

	out := make([]string, 0, len(tokens)*v.config.MaxNGram)
	out = append(out, tokens...)
	for n := 2; n <= v.config.MaxNGram; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

func tokenize(text string) []string {
	return tokenRegex.FindAllString(strings.ToLower(text), -1)
}

// selectFeatures keeps the max most frequent terms, ties broken
// alphabetically, and returns them in alphabetical order.
func selectFeatures(counts map[string]int, limit int) []string {
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > limit {
		terms = terms[:limit]
	}
	sort.Strings(terms)
	return terms
}

// Dot returns the inner product of two sparse vectors. For L2-normalized
// vectors this is their cosine similarity.
func Dot(a, b SparseVector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	var sum float64
	for idx, w := range a {
		sum += w * b[idx]
	}
	return sum
}

var englishStopWords = func() map[string]struct{} {
	words := strings.Fields(`
a about above after again against all almost alone along already also
although always am among amongst an and another any anyhow anyone anything
anyway anywhere are around as at back be became because become becomes
becoming been before beforehand behind being below beside besides between
beyond both but by can cannot could did do does doing done down due during
each either else elsewhere enough etc even ever every everyone everything
everywhere except few for former formerly from further had has have having
he hence her here hereafter hereby herein hers herself him himself his how
however i ie if in indeed into is it its itself just last latter least less
ltd many may me meanwhile might mine more moreover most mostly much must my
myself namely neither never nevertheless next no nobody none noone nor not
nothing now nowhere of off often on once one only onto or other others
otherwise our ours ourselves out over own per perhaps please rather re same
seem seemed seeming seems several she should since so some somehow someone
something sometime sometimes somewhere still such than that the their them
themselves then thence there thereafter thereby therefore therein thereupon
these they this those though through throughout thru thus to together too
toward towards under until up upon us very via was we well were what
whatever when whence whenever where whereafter whereas whereby wherein
whereupon wherever whether which while whither who whoever whole whom whose
why will with within without would yet you your yours yourself yourselves`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
