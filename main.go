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

package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func main() {
	// Configuration
	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = DefaultConfigFile
	}
	if err := loadConfigFile(configFile); err != nil {
		log.Printf("[SafeLink] Could not load config file %s: %v", configFile, err)
	}
	applyTunables()

	rdb = connectRedis()
	nodeID = initNode()
	log.Printf("[SafeLink] Engine %s started. Node: %s", EngineVersion, nodeID)

	store, err := newFeedbackStore(getEnv("FEEDBACK_STORE", DefaultFeedbackBackend), getEnv("FEEDBACK_SQLITE_PATH", DefaultSQLiteFeedbackDB))
	if err != nil {
		log.Printf("[SafeLink-Feedback] Feedback store disabled: %v", err)
	} else if store == nil {
		log.Printf("[SafeLink-Feedback] Feedback store disabled by configuration")
	} else {
		feedbackStore = store
		log.Printf("[SafeLink-Feedback] Using %s feedback store", store.Name())
	}

	// Model loads in the background so pages and /status answer immediately.
	go initModel(
		modelSource{Path: getEnv("VECTORIZER_PATH", DefaultVectorizerPath), URL: getEnv("VECTORIZER_URL", "")},
		modelSource{Path: getEnv("MODEL_PATH", DefaultModelPath), URL: getEnv("MODEL_URL", "")},
		getDuration("MODEL_FETCH_TIMEOUT", DefaultFetchTimeout),
	)

	// Workers
	stats, err := startStatsWorker(getEnv("STATS_SCHEDULE", DefaultStatsSchedule))
	if err != nil {
		log.Printf("[SafeLink] Stats worker disabled: %v", err)
	}

	pages, err := loadPages()
	if err != nil {
		log.Fatalf("[SafeLink] Critical template error: %v", err)
	}

	port := getEnv("PORT", "5000")
	bindAddr := getEnv("BIND_ADDR", "0.0.0.0")
	srv := &http.Server{
		Addr:              bindAddr + ":" + port,
		Handler:           newRouter(pages),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	drained := make(chan struct{})
	go handleSignals(srv, configFile, sigs, drained)

	log.Printf("[SafeLink] Listening on %s:%s", bindAddr, port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	// ListenAndServe returns as soon as Shutdown starts; stores stay open
	// until in-flight requests finish.
	<-drained

	if stats != nil {
		<-stats.Stop().Done()
	}
	reportStats()
	if feedbackStore != nil {
		feedbackStore.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	log.Printf("[SafeLink] Shutdown complete")
}

// newRouter wires every endpoint. /analyze only accepts the browser
// extension as a cross-origin caller; the public API accepts any origin.
func newRouter(pages map[string]*template.Template) http.Handler {
	extensionCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"chrome-extension://*"},
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	publicCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/analyze", extensionCORS.Handler(logRequestHandler(analyzeHandler)))
	mux.Handle("/api/expand", publicCORS.Handler(logRequestHandler(expandHandler)))
	mux.Handle("/api/submit_report", publicCORS.Handler(logRequestHandler(submitReportHandler)))
	mux.HandleFunc("/status", logRequestHandler(statusHandler))
	for _, p := range sitePages {
		if t, ok := pages[p.Path]; ok {
			mux.HandleFunc(p.Path, pageHandler(p, t))
		}
	}
	return recoverHandler(mux)
}

// connectRedis returns nil when Redis is disabled or unreachable. Redis is
// optional: it only backs the verdict cache, the node id and one feedback
// backend.
func connectRedis() *redis.Client {
	host := getEnv("REDIS_HOST", "localhost")
	if host == "" {
		log.Printf("[SafeLink] Redis disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, getEnv("REDIS_PORT", "6379")),
	})

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(c).Err(); err != nil {
		log.Printf("[SafeLink] Redis unavailable, running without cache: %v", err)
		client.Close()
		return nil
	}
	return client
}

func initNode() string {
	if rdb == nil {
		return uuid.New().String()
	}
	id, _ := rdb.Get(ctx, MetaNodeID).Result()
	if id == "" {
		id = uuid.New().String()
		rdb.Set(ctx, MetaNodeID, id, 0)
	}
	return id
}

// handleSignals reloads configuration on SIGHUP and drains the server on
// SIGINT/SIGTERM. drained is closed once Shutdown has returned.
func handleSignals(srv *http.Server, configFile string, sigs <-chan os.Signal, drained chan<- struct{}) {
	defer close(drained)
	for sig := range sigs {
		if sig == syscall.SIGHUP {
			if err := loadConfigFile(configFile); err != nil {
				log.Printf("[SafeLink] Reload failed: %v", err)
				continue
			}
			applyTunables()
			log.Printf("[SafeLink] Configuration reloaded from %s", configFile)
			continue
		}

		log.Printf("[SafeLink] Received %v, shutting down", sig)
		c, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := srv.Shutdown(c); err != nil {
			log.Printf("[SafeLink] Shutdown error: %v", err)
		}
		cancel()
		return
	}
}
