// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package metrics defines the Prometheus collectors exported at /metrics.
//
// Collectors are registered on the default registry through promauto.
// Callers use the Record* helpers rather than touching collectors directly
// so label sets stay consistent.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeShort = "short"
	OutcomeError = "error"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairrank_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fairrank_api_active_requests",
			Help: "Number of API requests in flight",
		},
	)

	// Reranking
	RerankRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_rerank_runs_total",
			Help: "Total number of rerank runs by algorithm and outcome (ok, short, error)",
		},
		[]string{"algorithm", "outcome"},
	)

	RerankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairrank_rerank_duration_seconds",
			Help:    "Time spent inside the reranker",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"algorithm"},
	)

	RerankInputSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairrank_rerank_input_items",
			Help:    "Number of candidate items per rerank run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"algorithm"},
	)

	RerankFloorViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_rerank_floor_violations_total",
			Help: "Prefix positions at which a group fell below its fairness floor",
		},
		[]string{"algorithm"},
	)

	RerankCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fairrank_rerank_coalesced_total",
			Help: "Rerank requests answered by an identical in-flight request",
		},
	)

	// Exposure
	ExposureEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_exposure_evaluations_total",
			Help: "Total number of exposure metric evaluations",
		},
		[]string{"metric", "reducer", "outcome"},
	)

	// Cache
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_cache_requests_total",
			Help: "Result cache lookups by tier (memory, redis) and result (hit, miss)",
		},
		[]string{"tier", "result"},
	)

	// Store
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_store_operations_total",
			Help: "Run history store operations",
		},
		[]string{"operation", "outcome"},
	)

	// Event processing
	EventMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_event_messages_total",
			Help: "Messages handled by the event router",
		},
		[]string{"handler", "outcome"},
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairrank_event_processing_duration_seconds",
			Help:    "Time to process one event message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fairrank_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairrank_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRerank records one rerank run.
func RecordRerank(algorithm string, inputSize int, short bool, duration time.Duration, err error) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeError
	case short:
		outcome = OutcomeShort
	}
	RerankRunsTotal.WithLabelValues(algorithm, outcome).Inc()
	if err != nil {
		return
	}
	RerankDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	RerankInputSize.WithLabelValues(algorithm).Observe(float64(inputSize))
}

// RecordFloorViolations adds n fairness-floor violations for algorithm.
func RecordFloorViolations(algorithm string, n int) {
	if n > 0 {
		RerankFloorViolations.WithLabelValues(algorithm).Add(float64(n))
	}
}

// RecordCoalesced counts a request served by singleflight.
func RecordCoalesced() {
	RerankCoalesced.Inc()
}

// RecordExposure records one exposure evaluation.
func RecordExposure(metric, reducer string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	ExposureEvaluationsTotal.WithLabelValues(metric, reducer, outcome).Inc()
}

// RecordCacheLookup records a hit or miss on a cache tier.
func RecordCacheLookup(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequestsTotal.WithLabelValues(tier, result).Inc()
}

// RecordStoreOperation records a run history store operation.
func RecordStoreOperation(operation string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	StoreOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordEventMessage records one processed event message.
func RecordEventMessage(handler string, duration time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	EventMessagesTotal.WithLabelValues(handler, outcome).Inc()
	EventProcessingDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordCircuitBreakerTransition records a state change. States are the
// gobreaker state names.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(circuitStateValue(to))
}

func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
