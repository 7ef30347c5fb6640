package main

import "time"

// AnalysisResult is the /analyze response body.
type AnalysisResult struct {
	URL          string   `json:"url"`
	AIPrediction string   `json:"ai_prediction"`
	Entropy      string   `json:"entropy"`
	IsMalicious  bool     `json:"is_malicious"`
	ThreatReport []string `json:"threat_report"`
}

// cachedVerdict is the part of an AnalysisResult that depends only on the
// normalized URL and the loaded model.
type cachedVerdict struct {
	Label        string   `json:"label"`
	Entropy      float64  `json:"entropy"`
	ThreatReport []string `json:"threat_report"`
}

type urlRequest struct {
	URL interface{} `json:"url"`
}

// reportRequest fields keep their decoded JSON form; submitFeedback renders
// them with jsonText.
type reportRequest struct {
	URL      interface{} `json:"url"`
	Feedback interface{} `json:"feedback"`
	Comments interface{} `json:"comments"`
}

// FeedbackReport is one user correction, persisted but never read back.
type FeedbackReport struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain,omitempty"`
	Feedback  string    `json:"feedback"`
	Comments  string    `json:"comments"`
	Timestamp time.Time `json:"timestamp"`
}

type StatusResponse struct {
	NodeID           string `json:"node_id"`
	Version          string `json:"version"`
	ModelReady       bool   `json:"model_ready"`
	ModelState       string `json:"model_state"`
	ModelFingerprint string `json:"model_fingerprint,omitempty"`
	FeedbackStore    string `json:"feedback_store"`
	CacheEnabled     bool   `json:"cache_enabled"`
}
