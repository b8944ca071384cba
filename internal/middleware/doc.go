// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package middleware provides chi-compatible HTTP middleware for the FairRank
// API: request ID propagation, Prometheus request metrics, body size limits
// and an in-process latency monitor.
//
// All middleware use the func(http.Handler) http.Handler shape so they can be
// passed straight to chi's r.Use:
//
//	r.Use(middleware.RequestID)
//	r.Use(middleware.Metrics)
//	r.Use(monitor.Middleware)
//
// Metrics and the monitor label requests by chi route pattern
// ("/api/v1/runs/{id}") rather than raw path, keeping label cardinality
// bounded.
package middleware
