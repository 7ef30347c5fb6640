package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
	_ "modernc.org/sqlite"
)

// FeedbackStore persists user reports. Reports are write-only from the
// service's point of view.
type FeedbackStore interface {
	Save(ctx context.Context, r FeedbackReport) error
	Name() string
	Close() error
}

// newFeedbackStore opens the backend named by kind. A nil store with a nil
// error means feedback persistence is disabled.
func newFeedbackStore(kind, sqlitePath string) (FeedbackStore, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "none":
		return nil, nil
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("redis feedback store selected but redis is not connected")
		}
		return &redisFeedbackStore{client: rdb, stream: FeedbackStream}, nil
	case "sqlite":
		return openSQLiteFeedbackStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown feedback store %q", kind)
	}
}

func newFeedbackReport(rawURL, feedback, comments string) FeedbackReport {
	return FeedbackReport{
		ID:        uuid.New().String(),
		URL:       rawURL,
		Domain:    registrableDomain(rawURL),
		Feedback:  feedback,
		Comments:  comments,
		Timestamp: time.Now().UTC(),
	}
}

// registrableDomain returns eTLD+1 for the reported URL, or "" when the URL
// has no usable host.
func registrableDomain(raw string) string {
	if !reAnyScheme.MatchString(raw) {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// --- Redis stream backend ---

type redisFeedbackStore struct {
	client *redis.Client
	stream string
}

func (s *redisFeedbackStore) Name() string { return "redis" }

func (s *redisFeedbackStore) Save(ctx context.Context, r FeedbackReport) error {
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":        r.ID,
			"url":       r.URL,
			"domain":    r.Domain,
			"feedback":  r.Feedback,
			"comments":  r.Comments,
			"timestamp": r.Timestamp.Format(time.RFC3339Nano),
		},
	}).Err()
}

// The client is shared with the verdict cache and closed by main.
func (s *redisFeedbackStore) Close() error { return nil }

// --- SQLite backend ---

type sqliteFeedbackStore struct {
	db *sql.DB
}

func openSQLiteFeedbackStore(path string) (*sqliteFeedbackStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; concurrent reports queue on the pool instead of
	// failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS feedback_reports (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		domain TEXT,
		feedback TEXT NOT NULL,
		comments TEXT,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init tables: %w", err)
	}
	return &sqliteFeedbackStore{db: db}, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}

func (s *sqliteFeedbackStore) Name() string { return "sqlite" }

func (s *sqliteFeedbackStore) Save(ctx context.Context, r FeedbackReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_reports (id, url, domain, feedback, comments, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Domain, r.Feedback, r.Comments, r.Timestamp)
	return err
}

func (s *sqliteFeedbackStore) Close() error { return s.db.Close() }

func feedbackStoreName() string {
	if feedbackStore == nil {
		return "none"
	}
	return feedbackStore.Name()
}

// submitFeedback validates and persists one report.
func submitFeedback(ctx context.Context, req reportRequest) error {
	rawURL, feedback := jsonText(req.URL), jsonText(req.Feedback)
	if rawURL == "" || feedback == "" {
		return ErrMissingReportFields
	}
	if feedbackStore == nil {
		log.Printf("[SafeLink-Feedback] Report dropped: no feedback store configured")
		return ErrStoreNotConfigured
	}

	report := newFeedbackReport(rawURL, feedback, jsonText(req.Comments))
	if err := feedbackStore.Save(ctx, report); err != nil {
		log.Printf("[SafeLink-Feedback] Failed to save report %s for %s: %v", report.ID, report.URL, err)
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	log.Printf("[SafeLink-Feedback] Report %s saved (%s, feedback=%s)", report.ID, report.Domain, report.Feedback)
	return nil
}
