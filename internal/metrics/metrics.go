// Package metrics holds process-wide counters and serves them in Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// HTTP metrics
var (
	HTTPRequests atomic.Int64
	HTTPErrors   atomic.Int64
)

// Reply media metrics
var (
	Fetches          atomic.Int64
	FetchFailures    atomic.Int64
	CoalescedFetches atomic.Int64
)

// Cache metrics
var (
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64
)

// Firehose metrics
var (
	FirehoseInvalidations atomic.Int64
	FirehoseReconnects    atomic.Int64
)

var startTime = time.Now()

// IncrementCacheHit increments the cache hit counter
func IncrementCacheHit() {
	CacheHits.Add(1)
}

// IncrementCacheMiss increments the cache miss counter
func IncrementCacheMiss() {
	CacheMisses.Add(1)
}

// Handler serves the metrics endpoint. backend labels the build info gauge.
func Handler(backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		Write(w, backend)
	}
}

func writeMetric(w io.Writer, name, kind, help string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %v\n\n", name, value)
}

// Write renders every metric to w
func Write(w io.Writer, backend string) {
	fmt.Fprintf(w, "# HELP reply_overlay_build_info Build and configuration information\n")
	fmt.Fprintf(w, "# TYPE reply_overlay_build_info gauge\n")
	fmt.Fprintf(w, "reply_overlay_build_info{cache_backend=%q,go_version=%q} 1\n\n", backend, runtime.Version())

	writeMetric(w, "process_start_time_seconds", "gauge", "Unix timestamp of process start", startTime.Unix())
	writeMetric(w, "process_uptime_seconds", "gauge", "Time since process started", int64(time.Since(startTime).Seconds()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	writeMetric(w, "go_goroutines", "gauge", "Number of active goroutines", runtime.NumGoroutine())
	writeMetric(w, "go_memstats_alloc_bytes", "gauge", "Currently allocated memory in bytes", memStats.Alloc)
	writeMetric(w, "go_gc_cycles_total", "counter", "Number of completed GC cycles", memStats.NumGC)

	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", HTTPRequests.Load())
	writeMetric(w, "http_errors_total", "counter", "Total number of HTTP 5xx errors", HTTPErrors.Load())

	writeMetric(w, "reply_media_fetches_total", "counter", "Thread fetches issued to the AppView", Fetches.Load())
	writeMetric(w, "reply_media_fetch_failures_total", "counter", "Thread fetches that soft-failed", FetchFailures.Load())
	writeMetric(w, "reply_media_coalesced_total", "counter", "Lookups that shared an in-flight fetch", CoalescedFetches.Load())

	writeMetric(w, "firehose_invalidations_total", "counter", "Cached sets dropped after a new media reply", FirehoseInvalidations.Load())
	writeMetric(w, "firehose_reconnects_total", "counter", "Firehose reconnect attempts", FirehoseReconnects.Load())

	hits := CacheHits.Load()
	misses := CacheMisses.Load()
	writeMetric(w, "cache_hits_total", "counter", "Total cache hits", hits)
	writeMetric(w, "cache_misses_total", "counter", "Total cache misses", misses)

	// Cache hit ratio (useful for alerting)
	var hitRatio float64
	if total := hits + misses; total > 0 {
		hitRatio = float64(hits) / float64(total)
	}
	fmt.Fprintf(w, "# HELP cache_hit_ratio Cache hit ratio (0-1)\n")
	fmt.Fprintf(w, "# TYPE cache_hit_ratio gauge\n")
	fmt.Fprintf(w, "cache_hit_ratio %.4f\n", hitRatio)
}
