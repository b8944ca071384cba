// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package middleware

import (
	"net/http"
	"sort"
	"sync"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/fairrank/internal/logging"
)

// DefaultSlowThreshold is the latency above which a request is logged.
const DefaultSlowThreshold = time.Second

// RequestSample is one observed request.
type RequestSample struct {
	Route      string        `json:"route"`
	Method     string        `json:"method"`
	Duration   time.Duration `json:"duration_ns"`
	StatusCode int           `json:"status_code"`
	Timestamp  time.Time     `json:"timestamp"`
}

// EndpointStats aggregates the samples of one method and route.
type EndpointStats struct {
	Endpoint     string  `json:"endpoint"`
	RequestCount int64   `json:"request_count"`
	ErrorCount   int64   `json:"error_count"`
	AvgMicros    float64 `json:"avg_us"`
	P50Micros    int64   `json:"p50_us"`
	P95Micros    int64   `json:"p95_us"`
	P99Micros    int64   `json:"p99_us"`
	MinMicros    int64   `json:"min_us"`
	MaxMicros    int64   `json:"max_us"`
}

// PerformanceMonitor keeps the most recent request samples in a ring buffer.
type PerformanceMonitor struct {
	mu            sync.RWMutex
	samples       []RequestSample
	next          int
	full          bool
	slowThreshold time.Duration
}

// NewPerformanceMonitor keeps up to capacity samples. Requests slower than
// slowThreshold are logged; zero uses DefaultSlowThreshold.
func NewPerformanceMonitor(capacity int, slowThreshold time.Duration) *PerformanceMonitor {
	if capacity <= 0 {
		capacity = 1000
	}
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowThreshold
	}
	return &PerformanceMonitor{
		samples:       make([]RequestSample, capacity),
		slowThreshold: slowThreshold,
	}
}

// Record adds a sample, overwriting the oldest once full.
func (pm *PerformanceMonitor) Record(s RequestSample) {
	pm.mu.Lock()
	pm.samples[pm.next] = s
	pm.next++
	if pm.next == len(pm.samples) {
		pm.next = 0
		pm.full = true
	}
	pm.mu.Unlock()

	if s.Duration > pm.slowThreshold {
		logging.Warn().
			Str("method", s.Method).
			Str("route", s.Route).
			Dur("duration", s.Duration).
			Dur("threshold", pm.slowThreshold).
			Msg("Slow request detected")
	}
}

// Len returns the number of retained samples.
func (pm *PerformanceMonitor) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.full {
		return len(pm.samples)
	}
	return pm.next
}

// Recent returns up to n samples, oldest first.
func (pm *PerformanceMonitor) Recent(n int) []RequestSample {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	all := pm.ordered()
	if n < len(all) {
		all = all[len(all)-n:]
	}
	out := make([]RequestSample, len(all))
	copy(out, all)
	return out
}

// ordered returns the retained samples oldest first. Caller holds mu.
func (pm *PerformanceMonitor) ordered() []RequestSample {
	if !pm.full {
		return pm.samples[:pm.next]
	}
	out := make([]RequestSample, 0, len(pm.samples))
	out = append(out, pm.samples[pm.next:]...)
	return append(out, pm.samples[:pm.next]...)
}

// Stats aggregates the retained samples per endpoint, busiest first.
func (pm *PerformanceMonitor) Stats() []EndpointStats {
	pm.mu.RLock()
	grouped := make(map[string][]RequestSample)
	for _, s := range pm.ordered() {
		key := s.Method + " " + s.Route
		grouped[key] = append(grouped[key], s)
	}
	pm.mu.RUnlock()

	stats := make([]EndpointStats, 0, len(grouped))
	for endpoint, samples := range grouped {
		micros := make([]int64, len(samples))
		var sum, errs int64
		for i, s := range samples {
			micros[i] = s.Duration.Microseconds()
			sum += micros[i]
			if s.StatusCode >= http.StatusInternalServerError {
				errs++
			}
		}
		sort.Slice(micros, func(i, j int) bool { return micros[i] < micros[j] })

		stats = append(stats, EndpointStats{
			Endpoint:     endpoint,
			RequestCount: int64(len(micros)),
			ErrorCount:   errs,
			AvgMicros:    float64(sum) / float64(len(micros)),
			P50Micros:    percentile(micros, 0.50),
			P95Micros:    percentile(micros, 0.95),
			P99Micros:    percentile(micros, 0.99),
			MinMicros:    micros[0],
			MaxMicros:    micros[len(micros)-1],
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].RequestCount != stats[j].RequestCount {
			return stats[i].RequestCount > stats[j].RequestCount
		}
		return stats[i].Endpoint < stats[j].Endpoint
	})
	return stats
}

// Middleware samples every request.
func (pm *PerformanceMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		pm.Record(RequestSample{
			Route:      routePattern(r),
			Method:     r.Method,
			Duration:   time.Since(start),
			StatusCode: statusOf(ww),
			Timestamp:  start,
		})
	})
}

// percentile uses the nearest-rank-below method on a sorted slice.
func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
