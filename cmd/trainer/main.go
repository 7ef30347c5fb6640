// SafeLink Guardian
// Copyright (C) 2025 SafeLink contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command trainer fits the TF-IDF vectorizer and logistic regression model
// served by safelink-guardian from a labelled CSV of URLs.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"safelink-guardian/internal/linmodel"
	"safelink-guardian/internal/urlfeatures"
)

type trainConfig struct {
	DataPath string
	OutDir   string
	TestSize float64
	Seed     int64
	MaxIter  int
	C        float64
}

type trainResult struct {
	Samples    int
	Skipped    int
	Features   int
	Classes    []string
	Accuracy   float64
	Vectorizer *linmodel.Vectorizer
	Classifier *linmodel.Classifier
}

func main() {
	cfg := trainConfig{}
	flag.StringVar(&cfg.DataPath, "data", "data/data.csv", "CSV file with url,label rows")
	flag.StringVar(&cfg.OutDir, "out", ".", "directory for vectorizer.json and model.json")
	flag.Float64Var(&cfg.TestSize, "test-size", 0.2, "fraction of rows held out for scoring")
	flag.Int64Var(&cfg.Seed, "seed", 42, "shuffle seed for the train/test split")
	flag.IntVar(&cfg.MaxIter, "max-iter", 1000, "maximum optimizer iterations")
	flag.Float64Var(&cfg.C, "c", 1.0, "inverse regularization strength")
	flag.Parse()

	log.Printf("[SafeLink-Trainer] Loading %s", cfg.DataPath)
	f, err := os.Open(cfg.DataPath)
	if err != nil {
		log.Fatalf("[SafeLink-Trainer] Could not open data file: %v", err)
	}
	defer f.Close()

	res, err := train(f, cfg)
	if err != nil {
		log.Fatalf("[SafeLink-Trainer] Training failed: %v", err)
	}
	log.Printf("[SafeLink-Trainer] %d samples (%d rows skipped), %d features, classes %v",
		res.Samples, res.Skipped, res.Features, res.Classes)
	log.Printf("[SafeLink-Trainer] MODEL ACCURACY: %.2f%%", res.Accuracy*100)

	if err := saveArtifacts(cfg.OutDir, res); err != nil {
		log.Fatalf("[SafeLink-Trainer] Could not save artifacts: %v", err)
	}
	log.Printf("[SafeLink-Trainer] Artifacts written to %s", cfg.OutDir)
}

// readSamples parses url,label rows. Malformed rows and a leading header
// row are skipped.
func readSamples(r io.Reader) (urls, labels []string, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, nil, skipped, err
		}
		isHeader := first && len(rec) >= 2 && strings.EqualFold(strings.TrimSpace(rec[1]), "label")
		first = false
		if isHeader {
			continue
		}
		if len(rec) != 2 || strings.TrimSpace(rec[0]) == "" || strings.TrimSpace(rec[1]) == "" {
			skipped++
			continue
		}
		urls = append(urls, rec[0])
		labels = append(labels, strings.TrimSpace(rec[1]))
	}
	return urls, labels, skipped, nil
}

func train(r io.Reader, cfg trainConfig) (*trainResult, error) {
	urls, labels, skipped, err := readSamples(r)
	if err != nil {
		return nil, err
	}
	if len(urls) < 2 {
		return nil, fmt.Errorf("need at least 2 samples, got %d", len(urls))
	}

	corpus := make([]string, len(urls))
	for i, u := range urls {
		corpus[i] = urlfeatures.Normalize(u)
	}

	vec, err := linmodel.FitVectorizer(corpus, true, urlfeatures.Tokenize)
	if err != nil {
		return nil, err
	}
	xs := vec.Transform(corpus)

	trainIdx, testIdx := linmodel.TrainTestSplit(len(xs), cfg.TestSize, cfg.Seed)
	xTrain, yTrain := pick(xs, labels, trainIdx)
	xTest, yTest := pick(xs, labels, testIdx)

	clf, err := linmodel.TrainLogistic(xTrain, yTrain, vec.Dim(), linmodel.TrainOptions{C: cfg.C, MaxIter: cfg.MaxIter})
	if err != nil {
		return nil, err
	}

	acc := 0.0
	if len(xTest) > 0 {
		acc = clf.Score(xTest, yTest)
	}
	return &trainResult{
		Samples:    len(urls),
		Skipped:    skipped,
		Features:   vec.Dim(),
		Classes:    clf.Classes(),
		Accuracy:   acc,
		Vectorizer: vec,
		Classifier: clf,
	}, nil
}

func pick(xs []linmodel.FeatureVector, y []string, idx []int) ([]linmodel.FeatureVector, []string) {
	px := make([]linmodel.FeatureVector, len(idx))
	py := make([]string, len(idx))
	for i, j := range idx {
		px[i] = xs[j]
		py[i] = y[j]
	}
	return px, py
}

func saveArtifacts(dir string, res *trainResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "vectorizer.json"), func(w io.Writer) error {
		return linmodel.WriteVectorizer(w, res.Vectorizer)
	}); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "model.json"), func(w io.Writer) error {
		return linmodel.WriteClassifier(w, res.Classifier)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
