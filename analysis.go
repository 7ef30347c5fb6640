package main

import (
	"fmt"
	"sync/atomic"

	"safelink-guardian/internal/urlfeatures"
)

// analyzeURL runs the full pipeline for one raw URL against model m.
func analyzeURL(m *urlModel, raw string) (*AnalysisResult, error) {
	clean := urlfeatures.Normalize(raw)
	if clean == "" {
		return nil, ErrInvalidURL
	}

	atomic.AddInt64(&analyzeCount, 1)
	promAnalyzed.Inc()

	var verdict cachedVerdict
	if verdictCacheEnabled() {
		key := verdictCacheKey(m.fingerprint, clean)
		v, err, _ := analyzeFlight.Do(key, func() (interface{}, error) {
			if cached, ok := lookupVerdict(key); ok {
				return cached, nil
			}
			fresh, err := classifyURL(m, clean)
			if err != nil {
				return nil, err
			}
			storeVerdict(key, fresh)
			return fresh, nil
		})
		if err != nil {
			return nil, err
		}
		verdict = v.(cachedVerdict)
	} else {
		var err error
		if verdict, err = classifyURL(m, clean); err != nil {
			return nil, err
		}
	}

	malicious := verdict.Label == urlfeatures.MaliciousLabel
	if malicious {
		atomic.AddInt64(&maliciousCount, 1)
	}
	promVerdicts.WithLabelValues(verdict.Label).Inc()

	report := verdict.ThreatReport
	if report == nil {
		report = []string{}
	}
	return &AnalysisResult{
		URL:          raw,
		AIPrediction: verdict.Label,
		Entropy:      fmt.Sprintf("%.4f", verdict.Entropy),
		IsMalicious:  malicious,
		ThreatReport: report,
	}, nil
}

func classifyURL(m *urlModel, clean string) (cachedVerdict, error) {
	entropy := urlfeatures.Entropy(clean)
	tokens := urlfeatures.Tokenize(clean)

	features := m.vectorizer.Transform([]string{clean})
	labels := m.classifier.Predict(features)
	if len(labels) != 1 {
		return cachedVerdict{}, fmt.Errorf("classifier returned %d labels for one input", len(labels))
	}

	return cachedVerdict{
		Label:        labels[0],
		Entropy:      entropy,
		ThreatReport: urlfeatures.ThreatReport(tokens, entropy, labels[0]),
	}, nil
}
