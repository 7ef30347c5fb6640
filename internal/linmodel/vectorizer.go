// Package linmodel holds the portable TF-IDF vectorizer and logistic
// regression classifier used to score URLs, together with the offline
// fitting routines that produce them.
package linmodel

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// TokenizerFunc splits one document into terms.
type TokenizerFunc func(doc string) []string

// FeatureVector is a sparse row: Indices are strictly increasing.
type FeatureVector struct {
	Indices []int
	Values  []float64
}

// Dot returns the inner product of v with a dense weight row.
func (v FeatureVector) Dot(w []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		if idx < len(w) {
			sum += v.Values[i] * w[idx]
		}
	}
	return sum
}

// Vectorizer maps documents to L2-normalized TF-IDF vectors over a fixed
// vocabulary. It is immutable once built and safe for concurrent use.
type Vectorizer struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	lowercase  bool
	tokenize   TokenizerFunc
}

// NewVectorizer builds a vectorizer from a fitted vocabulary (terms[i] is
// column i) and its IDF weights.
func NewVectorizer(terms []string, idf []float64, lowercase bool, tokenize TokenizerFunc) (*Vectorizer, error) {
	if len(terms) != len(idf) {
		return nil, fmt.Errorf("vocabulary has %d terms but %d idf weights", len(terms), len(idf))
	}
	if tokenize == nil {
		return nil, errors.New("tokenizer is required")
	}
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		if _, dup := vocab[t]; dup {
			return nil, fmt.Errorf("duplicate vocabulary term %q", t)
		}
		vocab[t] = i
	}
	return &Vectorizer{
		vocabulary: vocab,
		terms:      append([]string(nil), terms...),
		idf:        append([]float64(nil), idf...),
		lowercase:  lowercase,
		tokenize:   tokenize,
	}, nil
}

// Dim is the number of feature columns.
func (v *Vectorizer) Dim() int { return len(v.terms) }

// Transform vectorizes each document. Terms outside the vocabulary are ignored.
func (v *Vectorizer) Transform(docs []string) []FeatureVector {
	out := make([]FeatureVector, len(docs))
	for i, doc := range docs {
		out[i] = v.transformOne(doc)
	}
	return out
}

func (v *Vectorizer) transformOne(doc string) FeatureVector {
	if v.lowercase {
		doc = strings.ToLower(doc)
	}

	counts := make(map[int]float64)
	for _, term := range v.tokenize(doc) {
		if idx, ok := v.vocabulary[term]; ok {
			counts[idx]++
		}
	}

	fv := FeatureVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		fv.Indices = append(fv.Indices, idx)
	}
	sort.Ints(fv.Indices)

	var norm float64
	for _, idx := range fv.Indices {
		w := counts[idx] * v.idf[idx]
		fv.Values = append(fv.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range fv.Values {
			fv.Values[i] /= norm
		}
	}
	return fv
}
