package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
)

type failingStore struct{}

func (failingStore) Save(context.Context, FeedbackReport) error {
	return errors.New("disk full")
}

func (failingStore) Name() string { return "failing" }

func (failingStore) Close() error { return nil }

func withFeedbackStore(t *testing.T, s FeedbackStore) {
	t.Helper()
	original := feedbackStore
	feedbackStore = s
	t.Cleanup(func() { feedbackStore = original })
}

func TestSubmitReportValidatesBeforeStoreCheck(t *testing.T) {
	withFeedbackStore(t, nil)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"Missing feedback", `{"url":"http://a.com"}`, http.StatusBadRequest, "URL and feedback are required."},
		{"Missing url", `{"feedback":"false_positive"}`, http.StatusBadRequest, "URL and feedback are required."},
		{"Empty body", `{}`, http.StatusBadRequest, "URL and feedback are required."},
		{"No store", `{"url":"http://a.com","feedback":"false_positive"}`, http.StatusInternalServerError,
			"Database connection is not configured."},
		{"Zero feedback", `{"url":"http://a.com","feedback":0}`, http.StatusBadRequest, "URL and feedback are required."},
		{"Null url", `{"url":null,"feedback":"false_positive"}`, http.StatusBadRequest, "URL and feedback are required."},
		{"Numeric feedback", `{"url":"http://a.com","feedback":1}`, http.StatusInternalServerError,
			"Database connection is not configured."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(t, submitReportHandler, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if msg := decodeError(t, rr); msg != tt.msg {
				t.Errorf("error = %q, want %q", msg, tt.msg)
			}
		})
	}
}

func TestSubmitReportWriteFailure(t *testing.T) {
	withFeedbackStore(t, failingStore{})

	rr := postJSON(t, submitReportHandler, `{"url":"http://a.com","feedback":"false_negative"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if msg := decodeError(t, rr); msg != "An error occurred while submitting your report." {
		t.Errorf("error = %q", msg)
	}
}

func TestRedisFeedbackStore(t *testing.T) {
	withRedis(t)
	store, err := newFeedbackStore("redis", "")
	if err != nil {
		t.Fatalf("newFeedbackStore: %v", err)
	}
	withFeedbackStore(t, store)

	rr := postJSON(t, submitReportHandler,
		`{"url":"https://login.secure.example.co.uk/path","feedback":"false_negative","comments":"phish"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}

	msgs, err := rdb.XRange(ctx, FeedbackStream, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("stream holds %d reports, want 1", len(msgs))
	}
	v := msgs[0].Values
	if v["url"] != "https://login.secure.example.co.uk/path" || v["feedback"] != "false_negative" || v["comments"] != "phish" {
		t.Errorf("stored report = %v", v)
	}
	if v["domain"] != "example.co.uk" {
		t.Errorf("domain = %v, want example.co.uk", v["domain"])
	}
	if v["id"] == "" || v["timestamp"] == "" {
		t.Errorf("report lacks id or timestamp: %v", v)
	}
}

func TestSQLiteFeedbackStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.db")
	store, err := newFeedbackStore("sqlite", path)
	if err != nil {
		t.Fatalf("newFeedbackStore: %v", err)
	}
	defer store.Close()

	report := newFeedbackReport("bit.ly/abc", "false_positive", "")
	if err := store.Save(context.Background(), report); err != nil {
		t.Fatalf("Save: %v", err)
	}

	db := store.(*sqliteFeedbackStore).db
	var url, domain, feedback string
	err = db.QueryRow(`SELECT url, domain, feedback FROM feedback_reports WHERE id = ?`, report.ID).Scan(&url, &domain, &feedback)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if url != "bit.ly/abc" || domain != "bit.ly" || feedback != "false_positive" {
		t.Errorf("row = %q %q %q", url, domain, feedback)
	}
}

func TestSQLiteFeedbackStoreConcurrentSaves(t *testing.T) {
	store, err := openSQLiteFeedbackStore(filepath.Join(t.TempDir(), "feedback.db"))
	if err != nil {
		t.Fatalf("openSQLiteFeedbackStore: %v", err)
	}
	defer store.Close()

	const writers = 64
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report := newFeedbackReport(fmt.Sprintf("http://site%d.com", i), "false_positive", "")
			errs <- store.Save(context.Background(), report)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Save: %v", err)
		}
	}
	var n int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM feedback_reports`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != writers {
		t.Errorf("stored %d reports, want %d", n, writers)
	}
}

func TestSubmitReportStringifiesScalars(t *testing.T) {
	store, err := openSQLiteFeedbackStore(filepath.Join(t.TempDir(), "feedback.db"))
	if err != nil {
		t.Fatalf("openSQLiteFeedbackStore: %v", err)
	}
	defer store.Close()
	withFeedbackStore(t, store)

	rr := postJSON(t, submitReportHandler, `{"url":"http://a.com","feedback":1,"comments":true}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}

	var feedback, comments string
	err = store.db.QueryRow(`SELECT feedback, comments FROM feedback_reports`).Scan(&feedback, &comments)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if feedback != "1" || comments != "True" {
		t.Errorf("stored feedback=%q comments=%q, want 1 and True", feedback, comments)
	}
}

func TestNewFeedbackStoreSelection(t *testing.T) {
	original := rdb
	rdb = nil
	defer func() { rdb = original }()

	if s, err := newFeedbackStore("none", ""); s != nil || err != nil {
		t.Errorf("none: got %v, %v", s, err)
	}
	if _, err := newFeedbackStore("redis", ""); err == nil {
		t.Error("redis without a client should fail")
	}
	if _, err := newFeedbackStore("firestore", ""); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestRegistrableDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.paypal.com.evil.ru/login": "evil.ru",
		"bit.ly/abc":                           "bit.ly",
		"http://sub.example.co.uk":             "example.co.uk",
		"http://192.168.0.1/admin":             "192.168.0.1",
		"":                                     "",
	}
	for in, want := range tests {
		if got := registrableDomain(in); got != want {
			t.Errorf("registrableDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
