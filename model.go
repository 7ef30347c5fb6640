package main

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"safelink-guardian/internal/linmodel"
	"safelink-guardian/internal/urlfeatures"
)

const (
	modelLoading int32 = iota
	modelReady
	modelFailed
)

// urlModel is an immutable vectorizer/classifier pair. Handlers read it
// through currentModel and never see a half-loaded pair.
type urlModel struct {
	vectorizer  *linmodel.Vectorizer
	classifier  *linmodel.Classifier
	fingerprint string
}

var (
	currentModel atomic.Pointer[urlModel]
	modelState   atomic.Int32
)

// modelSource names where one artifact lives locally and, optionally, where
// to fetch it from when the local copy is missing.
type modelSource struct {
	Path string
	URL  string
}

func modelStateName() string {
	switch modelState.Load() {
	case modelReady:
		return "ready"
	case modelFailed:
		return "failed"
	default:
		return "loading"
	}
}

// getModel returns the loaded model, or the error the caller should report
// while it is absent.
func getModel() (*urlModel, error) {
	if m := currentModel.Load(); m != nil {
		return m, nil
	}
	if modelState.Load() == modelFailed {
		return nil, ErrModelUnavailable
	}
	return nil, ErrModelLoading
}

func setModel(m *urlModel) {
	currentModel.Store(m)
	modelState.Store(modelReady)
	promModelReady.Set(1)
}

// initModel resolves both artifacts and installs the model. It is run once
// at startup in the background; a failure leaves the server up with
// /analyze answering 500.
func initModel(vec, clf modelSource, fetchTimeout time.Duration) {
	modelState.Store(modelLoading)
	promModelReady.Set(0)

	m, err := loadModel(vec, clf, fetchTimeout)
	if err != nil {
		modelState.Store(modelFailed)
		log.Printf("[SafeLink-Model] Model unavailable: %v", err)
		return
	}
	setModel(m)
	log.Printf("[SafeLink-Model] Model ready (%d features, classes %v, fingerprint %s)",
		m.vectorizer.Dim(), m.classifier.Classes(), m.fingerprint[:12])
}

func loadModel(vec, clf modelSource, fetchTimeout time.Duration) (*urlModel, error) {
	for _, src := range []modelSource{vec, clf} {
		if err := ensureArtifact(src, fetchTimeout); err != nil {
			return nil, err
		}
	}

	vecBytes, err := os.ReadFile(vec.Path)
	if err != nil {
		return nil, fmt.Errorf("read vectorizer: %w", err)
	}
	clfBytes, err := os.ReadFile(clf.Path)
	if err != nil {
		return nil, fmt.Errorf("read classifier: %w", err)
	}
	return buildModel(vecBytes, clfBytes)
}

func buildModel(vecBytes, clfBytes []byte) (*urlModel, error) {
	v, err := linmodel.ReadVectorizer(bytes.NewReader(vecBytes), urlfeatures.Tokenize)
	if err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	c, err := linmodel.ReadClassifier(bytes.NewReader(clfBytes))
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	if v.Dim() != c.Dim() {
		return nil, fmt.Errorf("vectorizer has %d features but classifier expects %d", v.Dim(), c.Dim())
	}

	h := sha1.New()
	h.Write(vecBytes)
	h.Write(clfBytes)
	return &urlModel{
		vectorizer:  v,
		classifier:  c,
		fingerprint: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// ensureArtifact makes sure src.Path exists, downloading it once from
// src.URL otherwise. Partial downloads never land on src.Path.
func ensureArtifact(src modelSource, timeout time.Duration) error {
	if _, err := os.Stat(src.Path); err == nil {
		log.Printf("[SafeLink-Model] Found existing artifact at %s", src.Path)
		return nil
	}
	if src.URL == "" {
		return fmt.Errorf("%s not found and no download URL configured", src.Path)
	}

	log.Printf("[SafeLink-Model] Downloading %s to %s", src.URL, src.Path)
	if err := os.MkdirAll(filepath.Dir(src.Path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(src.Path), filepath.Base(src.Path)+".part-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	err = download(src.URL, tmp, timeout)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("download %s: %w", src.URL, err)
	}
	if err := os.Rename(tmpName, src.Path); err != nil {
		os.Remove(tmpName)
		return err
	}
	log.Printf("[SafeLink-Model] Saved %s", src.Path)
	return nil
}

func download(url string, dst io.Writer, timeout time.Duration) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", UserAgent)

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("empty response body")
	}
	return nil
}
