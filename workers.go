package main

import (
	"fmt"
	"log"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// StatsSnapshot holds the counters accumulated since the previous report.
type StatsSnapshot struct {
	Analyzed  int64
	Malicious int64
	CacheHits int64
	Expanded  int64
	Feedback  int64
}

func (s StatsSnapshot) empty() bool {
	return s.Analyzed == 0 && s.Malicious == 0 && s.CacheHits == 0 && s.Expanded == 0 && s.Feedback == 0
}

// swapStats resets the counters and returns what they held.
func swapStats() StatsSnapshot {
	return StatsSnapshot{
		Analyzed:  atomic.SwapInt64(&analyzeCount, 0),
		Malicious: atomic.SwapInt64(&maliciousCount, 0),
		CacheHits: atomic.SwapInt64(&cacheHitCount, 0),
		Expanded:  atomic.SwapInt64(&expandCount, 0),
		Feedback:  atomic.SwapInt64(&feedbackCount, 0),
	}
}

// Statistics reporting job
func reportStats() {
	s := swapStats()
	if s.empty() {
		return
	}
	log.Printf("[SafeLink] Stats: analyzed=%d malicious=%d cache_hits=%d expanded=%d feedback=%d (model %s)",
		s.Analyzed, s.Malicious, s.CacheHits, s.Expanded, s.Feedback, modelStateName())
}

// startStatsWorker schedules reportStats. The caller stops the returned
// scheduler on shutdown.
func startStatsWorker(schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, reportStats); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
