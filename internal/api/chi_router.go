// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fairrank/internal/middleware"
)

// Router wires the handlers to a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil mw uses DefaultChiMiddlewareConfig.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.Metrics)
	if router.handler.monitor != nil {
		r.Use(router.handler.monitor.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, &APIError{Code: CodeNotFound, Message: "no such endpoint"}, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, &APIError{Code: CodeMethod, Message: "method not allowed"}, nil)
	})

	// ========================
	// Health and Metrics
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// API v1
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		r.Group(func(r chi.Router) {
			r.Use(middleware.BodyLimit(router.chiMiddleware.config.MaxBodyBytes))
			r.Use(chimiddleware.AllowContentType("application/json"))
			r.Post("/rerank", router.handler.Rerank)
			r.Post("/exposure", router.handler.Exposure)
		})

		r.Get("/algorithms", router.handler.Algorithms)
		r.Get("/reducers", router.handler.Reducers)
		r.Get("/exposure/metrics", router.handler.ExposureMetrics)
		r.Get("/presets", router.handler.Presets)
		r.Get("/presets/{name}", router.handler.Preset)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", router.handler.Runs)
			r.Get("/stats", router.handler.RunStats)
			r.Get("/{id}", router.handler.Run)
		})

		r.Get("/stats/http", router.handler.HTTPStats)
	})

	return r
}
