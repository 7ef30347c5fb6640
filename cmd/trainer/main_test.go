package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"safelink-guardian/internal/linmodel"
	"safelink-guardian/internal/urlfeatures"
)

const sampleCSV = `url,label
google.com,good
https://www.wikipedia.org/wiki/Go,good
github.com/golang/go,good
docs.python.org/3/library,good
paypal-login-secure.verify-account.ru/signin,bad
http://free-gift-card.winner.xyz/claim,bad
secure-bank-login.tk/update,bad
download-crack-toolbar.exe.cn/install,bad
broken,row,with,extra,fields
,bad
`

func TestReadSamples(t *testing.T) {
	urls, labels, skipped, err := readSamples(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("readSamples: %v", err)
	}
	if len(urls) != 8 || len(labels) != 8 {
		t.Fatalf("got %d urls / %d labels, want 8", len(urls), len(labels))
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if urls[0] != "google.com" || labels[4] != "bad" {
		t.Errorf("unexpected rows: %v %v", urls, labels)
	}
}

func TestTrainSeparatesClasses(t *testing.T) {
	cfg := trainConfig{TestSize: 0, Seed: 42, MaxIter: 1000, C: 1}
	res, err := train(strings.NewReader(sampleCSV), cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if res.Samples != 8 || res.Skipped != 2 {
		t.Errorf("samples = %d, skipped = %d", res.Samples, res.Skipped)
	}
	if len(res.Classes) != 2 || res.Classes[0] != "bad" || res.Classes[1] != "good" {
		t.Errorf("classes = %v", res.Classes)
	}

	urls, labels, _, _ := readSamples(strings.NewReader(sampleCSV))
	corpus := make([]string, len(urls))
	for i, u := range urls {
		corpus[i] = urlfeatures.Normalize(u)
	}
	if acc := res.Classifier.Score(res.Vectorizer.Transform(corpus), labels); acc != 1 {
		t.Errorf("training accuracy = %v, want 1", acc)
	}
}

func TestTrainHoldsOutTestSet(t *testing.T) {
	cfg := trainConfig{TestSize: 0.25, Seed: 42, MaxIter: 200, C: 1}
	res, err := train(strings.NewReader(sampleCSV), cfg)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if res.Accuracy < 0 || res.Accuracy > 1 {
		t.Errorf("accuracy = %v out of range", res.Accuracy)
	}
}

func TestTrainNeedsSamples(t *testing.T) {
	if _, err := train(strings.NewReader("url,label\ngoogle.com,good\n"), trainConfig{C: 1, MaxIter: 10}); err == nil {
		t.Error("expected an error for a single sample")
	}
}

func TestSaveArtifactsRoundTrip(t *testing.T) {
	res, err := train(strings.NewReader(sampleCSV), trainConfig{Seed: 42, MaxIter: 1000, C: 1})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	if err := saveArtifacts(dir, res); err != nil {
		t.Fatalf("saveArtifacts: %v", err)
	}

	vf, err := os.Open(filepath.Join(dir, "vectorizer.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer vf.Close()
	vec, err := linmodel.ReadVectorizer(vf, urlfeatures.Tokenize)
	if err != nil {
		t.Fatalf("ReadVectorizer: %v", err)
	}

	cf, err := os.Open(filepath.Join(dir, "model.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer cf.Close()
	clf, err := linmodel.ReadClassifier(cf)
	if err != nil {
		t.Fatalf("ReadClassifier: %v", err)
	}

	if vec.Dim() != res.Features || clf.Dim() != res.Features {
		t.Errorf("dims = %d/%d, want %d", vec.Dim(), clf.Dim(), res.Features)
	}
	got := clf.Predict(vec.Transform([]string{"google.com", "secure-bank-login.tk/update"}))
	if got[0] != "good" || got[1] != "bad" {
		t.Errorf("reloaded model predicts %v, want [good bad]", got)
	}
}
