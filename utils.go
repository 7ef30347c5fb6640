package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// loadConfigFile replaces the file-backed config map. KEY=value files and
// YAML files (.yaml/.yml, flat keys) are both accepted. A missing file is not
// an error.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var parsed map[string]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parsed, err = parseYAMLConfig(data)
	default:
		parsed, err = parseKeyValueConfig(string(data))
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	configMutex.Lock()
	defer configMutex.Unlock()
	// Clear first so keys removed from the file stop applying on reload.
	for k := range configMap {
		delete(configMap, k)
	}
	for k, v := range parsed {
		configMap[k] = v
	}
	return nil
}

func parseKeyValueConfig(content string) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if len(value) >= 2 && strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
				value = value[1 : len(value)-1]
			}
			out[key] = value
		}
	}
	return out, scanner.Err()
}

func parseYAMLConfig(data []byte) (map[string]string, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("key %s: nested values are not supported", k)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func getEnv(k, f string) string {
	configMutex.RLock()
	if v, ok := configMap[k]; ok {
		configMutex.RUnlock()
		return v
	}
	configMutex.RUnlock()

	if v := os.Getenv(k); v != "" {
		return v
	}
	return f
}

func getDuration(k string, f time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return f
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[SafeLink] Invalid duration %s=%q, using %v", k, v, f)
		return f
	}
	return d
}

func getInt(k string, f int64) int64 {
	v := getEnv(k, "")
	if v == "" {
		return f
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Printf("[SafeLink] Invalid integer %s=%q, using %d", k, v, f)
		return f
	}
	return n
}

// applyTunables re-reads the settings that may change without a restart.
func applyTunables() {
	atomic.StoreInt64(&expandTimeout, int64(getDuration("EXPAND_TIMEOUT", DefaultExpandTimeout)))
	atomic.StoreInt64(&storeTimeout, int64(getDuration("STORE_TIMEOUT", DefaultStoreTimeout)))
	atomic.StoreInt64(&verdictCacheTTL, int64(getDuration("VERDICT_CACHE_TTL", DefaultVerdictCacheTTL)))
	atomic.StoreInt64(&maxRedirects, getInt("EXPAND_MAX_REDIRECTS", DefaultMaxRedirects))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	respBytes, err := json.Marshal(v)
	if err != nil {
		log.Printf("[SafeLink] Failed to encode response: %v", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(respBytes)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
