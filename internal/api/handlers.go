// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package api serves the FairRank HTTP API.
//
// Endpoints:
//   - POST /api/v1/rerank: rerank items toward a target group distribution
//   - POST /api/v1/exposure: score a ranking with an exposure metric
//   - GET /api/v1/algorithms, /api/v1/reducers, /api/v1/presets: catalogs
//   - GET /api/v1/runs, /api/v1/runs/{id}, /api/v1/runs/stats: history
//   - GET /api/v1/stats/http: in-process latency per endpoint
//   - GET /health/live, /health/ready, /metrics
//
// Every JSON response is wrapped in APIResponse.
package api

import (
	"context"
	"time"

	"github.com/tomtom215/fairrank/internal/engine"
	"github.com/tomtom215/fairrank/internal/middleware"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	engine    *engine.Engine
	monitor   *middleware.PerformanceMonitor
	checks    map[string]Pinger
	version   string
	startTime time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMonitor exposes the monitor's samples at /api/v1/stats/http.
func WithMonitor(m *middleware.PerformanceMonitor) HandlerOption {
	return func(h *Handler) { h.monitor = m }
}

// WithReadinessCheck adds a dependency to /health/ready.
func WithReadinessCheck(name string, p Pinger) HandlerOption {
	return func(h *Handler) { h.checks[name] = p }
}

// WithVersion sets the version reported by /health/live.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) { h.version = v }
}

// NewHandler creates the API handler around eng.
func NewHandler(eng *engine.Engine, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:    eng,
		checks:    make(map[string]Pinger),
		version:   "dev",
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
