package main

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

func verdictCacheEnabled() bool {
	return rdb != nil && atomic.LoadInt64(&verdictCacheTTL) > 0
}

func verdictCacheKey(fingerprint, cleanURL string) string {
	sum := sha1.Sum([]byte(cleanURL))
	return VerdictCachePrefix + fingerprint[:16] + ":" + hex.EncodeToString(sum[:])
}

// lookupVerdict returns a cached verdict. Any Redis problem is a miss.
func lookupVerdict(key string) (cachedVerdict, bool) {
	var v cachedVerdict
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[SafeLink] Verdict cache read failed: %v", err)
		}
		promCacheHits.WithLabelValues("miss").Inc()
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		promCacheHits.WithLabelValues("miss").Inc()
		return v, false
	}
	atomic.AddInt64(&cacheHitCount, 1)
	promCacheHits.WithLabelValues("hit").Inc()
	return v, true
}

func storeVerdict(key string, v cachedVerdict) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	ttl := time.Duration(atomic.LoadInt64(&verdictCacheTTL))
	if err := rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Printf("[SafeLink] Verdict cache write failed: %v", err)
	}
}
