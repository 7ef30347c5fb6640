package main

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// --- SafeLink engine configuration ---
const (
	EngineVersion      = "1.2.0"
	VerdictCachePrefix = "sl_v:"
	FeedbackStream     = "sl:feedback_reports"
	MetaNodeID         = "sl_meta:id"
	DefaultConfigFile  = "safelink.conf"
	MaxRequestSize     = 64 * 1024 // JSON bodies are tiny
	UserAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	DefaultExpandTimeout    = 10 * time.Second
	DefaultStoreTimeout     = 7 * time.Second
	DefaultFetchTimeout     = 90 * time.Second
	DefaultVerdictCacheTTL  = 1 * time.Hour
	DefaultMaxRedirects     = 30
	DefaultStatsSchedule    = "@every 10m"
	DefaultVectorizerPath   = "/tmp/safelink/vectorizer.json"
	DefaultModelPath        = "/tmp/safelink/model.json"
	DefaultFeedbackBackend  = "redis"
	DefaultSQLiteFeedbackDB = "safelink.db"
)

var (
	ctx           = context.Background()
	rdb           *redis.Client
	nodeID        string
	feedbackStore FeedbackStore
	analyzeFlight singleflight.Group

	analyzeCount   int64
	maliciousCount int64
	cacheHitCount  int64
	expandCount    int64
	feedbackCount  int64

	// Tunables reloaded on SIGHUP, stored as nanoseconds / counts.
	expandTimeout   int64 = int64(DefaultExpandTimeout)
	storeTimeout    int64 = int64(DefaultStoreTimeout)
	verdictCacheTTL int64 = int64(DefaultVerdictCacheTTL)
	maxRedirects    int64 = DefaultMaxRedirects

	// Config
	configMap   map[string]string = make(map[string]string)
	configMutex sync.RWMutex

	// Prometheus metrics
	promAnalyzed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "safelink_analyzed_total",
		Help: "Total number of URLs analyzed",
	})
	promVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safelink_verdicts_total",
		Help: "Classifier verdicts by label",
	}, []string{"label"})
	promCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safelink_verdict_cache_total",
		Help: "Verdict cache lookups",
	}, []string{"result"})
	promExpand = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safelink_expand_total",
		Help: "Link expansion attempts by outcome",
	}, []string{"outcome"})
	promFeedback = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safelink_feedback_reports_total",
		Help: "Feedback reports received by result",
	}, []string{"result"})
	promModelReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "safelink_model_ready",
		Help: "1 when the vectorizer and classifier are loaded",
	})
)

func init() {
	prometheus.MustRegister(promAnalyzed, promVerdicts, promCacheHits, promExpand, promFeedback, promModelReady)
}
