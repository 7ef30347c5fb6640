package linmodel

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	VectorizerFormat = "safelink-tfidf/v1"
	ClassifierFormat = "safelink-logreg/v1"
)

type vectorizerArtifact struct {
	Format     string    `json:"format"`
	Lowercase  bool      `json:"lowercase"`
	Norm       string    `json:"norm"`
	Vocabulary []string  `json:"vocabulary"`
	IDF        []float64 `json:"idf"`
}

type classifierArtifact struct {
	Format    string      `json:"format"`
	Classes   []string    `json:"classes"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

// ReadVectorizer decodes a vectorizer artifact. The tokenizer is not part of
// the artifact and must match the one used at fitting time.
func ReadVectorizer(r io.Reader, tokenize TokenizerFunc) (*Vectorizer, error) {
	var a vectorizerArtifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode vectorizer: %w", err)
	}
	if a.Format != VectorizerFormat {
		return nil, fmt.Errorf("unsupported vectorizer format %q", a.Format)
	}
	if a.Norm != "" && a.Norm != "l2" {
		return nil, fmt.Errorf("unsupported vectorizer norm %q", a.Norm)
	}
	return NewVectorizer(a.Vocabulary, a.IDF, a.Lowercase, tokenize)
}

// WriteVectorizer encodes v as an artifact.
func WriteVectorizer(w io.Writer, v *Vectorizer) error {
	return json.NewEncoder(w).Encode(vectorizerArtifact{
		Format:     VectorizerFormat,
		Lowercase:  v.lowercase,
		Norm:       "l2",
		Vocabulary: v.terms,
		IDF:        v.idf,
	})
}

// ReadClassifier decodes a classifier artifact.
func ReadClassifier(r io.Reader) (*Classifier, error) {
	var a classifierArtifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode classifier: %w", err)
	}
	if a.Format != ClassifierFormat {
		return nil, fmt.Errorf("unsupported classifier format %q", a.Format)
	}
	return NewClassifier(a.Classes, a.Coef, a.Intercept)
}

// WriteClassifier encodes c as an artifact.
func WriteClassifier(w io.Writer, c *Classifier) error {
	return json.NewEncoder(w).Encode(classifierArtifact{
		Format:    ClassifierFormat,
		Classes:   c.classes,
		Coef:      c.coef,
		Intercept: c.intercept,
	})
}
