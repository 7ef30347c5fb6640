package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"
)

const (
	msgAnalysisFailed = "An internal server error occurred during analysis."
	msgExpandFailed   = "Unknown error expanding URL."
	msgInternal       = "An internal server error occurred."
	msgReportSaved    = "Thank you for your feedback! It has been recorded."
)

var errInvalidJSON = errors.New("Invalid JSON body")

// --- Handlers ---

func analyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	m, err := getModel()
	if err != nil {
		writeError(w, err, msgAnalysisFailed)
		return
	}

	raw, err := readURLField(r)
	if err != nil {
		writeError(w, err, msgAnalysisFailed)
		return
	}

	result, err := analyzeURL(m, raw)
	if err != nil {
		writeError(w, err, msgAnalysisFailed)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func expandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	short, err := readURLField(r)
	if err != nil {
		writeError(w, err, msgExpandFailed)
		return
	}

	atomic.AddInt64(&expandCount, 1)
	timeout, limit := currentExpandSettings()
	finalURL, err := expandURL(r.Context(), short, timeout, limit)
	if err != nil {
		promExpand.WithLabelValues(expandOutcome(err)).Inc()
		writeError(w, err, msgExpandFailed)
		return
	}
	promExpand.WithLabelValues("expanded").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"final_url": finalURL})
}

func submitReportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req reportRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err, ErrStoreWrite.Error())
		return
	}

	c, cancel := context.WithTimeout(r.Context(), time.Duration(atomic.LoadInt64(&storeTimeout)))
	defer cancel()

	if err := submitFeedback(c, req); err != nil {
		promFeedback.WithLabelValues(feedbackOutcome(err)).Inc()
		writeError(w, err, ErrStoreWrite.Error())
		return
	}
	atomic.AddInt64(&feedbackCount, 1)
	promFeedback.WithLabelValues("saved").Inc()
	writeJSON(w, http.StatusOK, map[string]string{"message": msgReportSaved})
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		NodeID:        nodeID,
		Version:       EngineVersion,
		ModelState:    modelStateName(),
		FeedbackStore: feedbackStoreName(),
		CacheEnabled:  verdictCacheEnabled(),
	}
	if m := currentModel.Load(); m != nil {
		resp.ModelReady = true
		resp.ModelFingerprint = m.fingerprint
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// --- Request helpers ---

func decodeJSONBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestSize))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

// readURLField decodes {"url": ...} and returns the URL as a string. Falsy
// values are ErrNoURL.
func readURLField(r *http.Request) (string, error) {
	var req urlRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return "", err
	}
	return coerceURL(req.URL)
}

// coerceURL turns a decoded JSON value into the raw URL string. Falsy values
// count as missing and non-empty containers are rejected.
func coerceURL(v interface{}) (string, error) {
	s := jsonText(v)
	if s == "" {
		return "", ErrNoURL
	}
	switch v.(type) {
	case []interface{}, map[string]interface{}:
		return "", ErrInvalidURL
	}
	return s, nil
}

// jsonText renders a decoded JSON value as text. null, "", false, zero and
// empty containers render as ""; true renders as "True" and numbers keep
// their literal form.
func jsonText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return ""
	case json.Number:
		if f, err := val.Float64(); err == nil && f == 0 {
			return ""
		}
		return val.String()
	case []interface{}:
		if len(val) == 0 {
			return ""
		}
	case map[string]interface{}:
		if len(val) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// writeError maps err onto a JSON error response. Unclassified errors are
// logged and reported with fallback.
func writeError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, errInvalidJSON) {
		writeJSONError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	status, msg := httpStatusFor(err)
	if msg == "" {
		log.Printf("[SafeLink] Internal error: %v", err)
		msg = fallback
	}
	writeJSONError(w, status, msg)
}

func expandOutcome(err error) string {
	var statusErr *UpstreamStatusError
	switch {
	case errors.Is(err, ErrNotExpanded):
		return "not_expanded"
	case errors.Is(err, ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, ErrUpstreamConnect):
		return "connect_error"
	case errors.Is(err, ErrTooManyRedirects):
		return "too_many_redirects"
	case errors.As(err, &statusErr):
		return "upstream_status"
	default:
		return "error"
	}
}

func feedbackOutcome(err error) string {
	switch {
	case errors.Is(err, ErrMissingReportFields):
		return "invalid"
	case errors.Is(err, ErrStoreNotConfigured):
		return "unconfigured"
	default:
		return "failed"
	}
}

// --- Middleware ---

func logRequestHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[SafeLink] Request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	}
}

func recoverHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Printf("[SafeLink] Panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
				writeJSONError(w, http.StatusInternalServerError, msgInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
