package linmodel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/optimize"
)

// FitVectorizer learns the vocabulary and smoothed IDF weights from docs.
// Columns are ordered alphabetically by term.
func FitVectorizer(docs []string, lowercase bool, tokenize TokenizerFunc) (*Vectorizer, error) {
	df := make(map[string]int)
	for _, doc := range docs {
		if lowercase {
			doc = strings.ToLower(doc)
		}
		seen := make(map[string]struct{})
		for _, term := range tokenize(doc) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, errors.New("empty vocabulary")
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return NewVectorizer(terms, idf, lowercase, tokenize)
}

// TrainOptions tunes logistic regression fitting.
type TrainOptions struct {
	// C is the inverse L2 regularization strength.
	C       float64
	MaxIter int
}

// DefaultTrainOptions matches the usual logistic regression defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{C: 1.0, MaxIter: 1000}
}

// TrainLogistic fits a binary L2-regularized logistic regression with
// L-BFGS. The intercept is not regularized.
func TrainLogistic(xs []FeatureVector, y []string, dim int, opts TrainOptions) (*Classifier, error) {
	if len(xs) != len(y) {
		return nil, fmt.Errorf("%d samples but %d labels", len(xs), len(y))
	}
	if len(xs) == 0 {
		return nil, errors.New("no training samples")
	}
	if opts.C <= 0 {
		opts.C = 1.0
	}

	classSet := make(map[string]struct{})
	for _, label := range y {
		classSet[label] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	if len(classes) != 2 {
		return nil, fmt.Errorf("binary training needs exactly two labels, got %d", len(classes))
	}

	target := make([]float64, len(y))
	for i, label := range y {
		if label == classes[1] {
			target[i] = 1
		}
	}

	// params = weights followed by the intercept.
	scores := func(params []float64) []float64 {
		w, b := params[:dim], params[dim]
		z := make([]float64, len(xs))
		for i, x := range xs {
			z[i] = x.Dot(w) + b
		}
		return z
	}

	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			w := params[:dim]
			var loss float64
			for i, z := range scores(params) {
				loss += logLoss(z, target[i])
			}
			var reg float64
			for _, wj := range w {
				reg += wj * wj
			}
			return 0.5*reg + opts.C*loss
		},
		Grad: func(grad, params []float64) {
			w := params[:dim]
			copy(grad[:dim], w)
			grad[dim] = 0
			for i, z := range scores(params) {
				residual := opts.C * (sigmoid(z) - target[i])
				for k, idx := range xs[i].Indices {
					grad[idx] += residual * xs[i].Values[k]
				}
				grad[dim] += residual
			}
		},
	}

	settings := &optimize.Settings{MajorIterations: opts.MaxIter}
	result, err := optimize.Minimize(problem, make([]float64, dim+1), settings, &optimize.LBFGS{})
	// A line-search stall next to the optimum comes back as an error together
	// with a usable best location.
	if err != nil && (result == nil || len(result.X) != dim+1) {
		return nil, fmt.Errorf("optimize: %w", err)
	}

	coef := append([]float64(nil), result.X[:dim]...)
	return NewClassifier(classes, [][]float64{coef}, []float64{result.X[dim]})
}

// logLoss is log(1+exp(z)) - y*z, evaluated without overflow.
func logLoss(z, y float64) float64 {
	var softplus float64
	if z > 0 {
		softplus = z + math.Log1p(math.Exp(-z))
	} else {
		softplus = math.Log1p(math.Exp(z))
	}
	return softplus - y*z
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// TrainTestSplit shuffles sample indices with seed and holds out testSize of them.
func TrainTestSplit(n int, testSize float64, seed int64) (train, test []int) {
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testSize))
	if nTest > n {
		nTest = n
	}
	return perm[nTest:], perm[:nTest]
}
