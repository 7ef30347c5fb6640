package linmodel

import (
	"errors"
	"fmt"
)

// Classifier is a fitted linear model. A binary model has one coefficient
// row scoring classes[1] against classes[0]; a multi-class model has one row
// per class.
type Classifier struct {
	classes   []string
	coef      [][]float64
	intercept []float64
}

// NewClassifier validates and wraps fitted weights.
func NewClassifier(classes []string, coef [][]float64, intercept []float64) (*Classifier, error) {
	if len(classes) < 2 {
		return nil, errors.New("classifier needs at least two classes")
	}
	rows := len(classes)
	if rows == 2 {
		rows = 1
	}
	if len(coef) != rows || len(intercept) != rows {
		return nil, fmt.Errorf("expected %d coefficient rows for %d classes, got %d rows and %d intercepts",
			rows, len(classes), len(coef), len(intercept))
	}
	dim := len(coef[0])
	for i, row := range coef {
		if len(row) != dim {
			return nil, fmt.Errorf("coefficient row %d has %d columns, want %d", i, len(row), dim)
		}
	}
	return &Classifier{
		classes:   append([]string(nil), classes...),
		coef:      coef,
		intercept: append([]float64(nil), intercept...),
	}, nil
}

// Dim is the number of feature columns the model expects.
func (c *Classifier) Dim() int { return len(c.coef[0]) }

// Classes returns the labels in model order.
func (c *Classifier) Classes() []string { return append([]string(nil), c.classes...) }

// DecisionFunction returns the raw linear scores for one vector.
func (c *Classifier) DecisionFunction(x FeatureVector) []float64 {
	scores := make([]float64, len(c.coef))
	for i, row := range c.coef {
		scores[i] = x.Dot(row) + c.intercept[i]
	}
	return scores
}

// Predict labels each vector.
func (c *Classifier) Predict(xs []FeatureVector) []string {
	labels := make([]string, len(xs))
	for i, x := range xs {
		scores := c.DecisionFunction(x)
		if len(scores) == 1 {
			if scores[0] > 0 {
				labels[i] = c.classes[1]
			} else {
				labels[i] = c.classes[0]
			}
			continue
		}
		best := 0
		for k := 1; k < len(scores); k++ {
			if scores[k] > scores[best] {
				best = k
			}
		}
		labels[i] = c.classes[best]
	}
	return labels
}

// Score returns the fraction of xs whose predicted label matches y.
func (c *Classifier) Score(xs []FeatureVector, y []string) float64 {
	if len(xs) == 0 {
		return 0
	}
	correct := 0
	for i, label := range c.Predict(xs) {
		if label == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(xs))
}
