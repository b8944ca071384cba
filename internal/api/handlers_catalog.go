// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/fairrank/internal/exposure"
	"github.com/tomtom215/fairrank/internal/rerank"
)

// AlgorithmInfo describes a reranking algorithm.
type AlgorithmInfo struct {
	Name        string   `json:"name"`
	Default     bool     `json:"default"`
	Description string   `json:"description"`
	Options     []string `json:"options,omitempty"`
}

var algorithmDescriptions = map[rerank.Algorithm]AlgorithmInfo{
	rerank.AlgorithmDetConSort: {
		Description: "Deterministic constrained sorting: guarantees every prefix meets floor(t*p) per group while supply lasts",
	},
	rerank.AlgorithmCalibrated: {
		Description: "Greedy selection trading relevance against KL divergence from the target distribution",
		Options:     []string{"lambda"},
	},
	rerank.AlgorithmMMR: {
		Description: "Maximal marginal relevance with group-membership similarity over a sliding window",
		Options:     []string{"lambda", "window"},
	},
}

// ReducerInfo describes an exposure reducer. Parity is the value of a
// perfectly even vector.
type ReducerInfo struct {
	Name    string  `json:"name"`
	Default bool    `json:"default"`
	Parity  float64 `json:"parity"`
}

// MetricInfo describes an exposure metric.
type MetricInfo struct {
	Name     string   `json:"name"`
	Default  bool     `json:"default"`
	Requires []string `json:"requires,omitempty"`
}

// Algorithms handles GET /api/v1/algorithms.
func (h *Handler) Algorithms(w http.ResponseWriter, r *http.Request) {
	def := h.engine.Config().DefaultAlgorithm
	algs := rerank.Algorithms()
	out := make([]AlgorithmInfo, 0, len(algs))
	for _, a := range algs {
		info := algorithmDescriptions[a]
		info.Name = string(a)
		info.Default = a == def
		out = append(out, info)
	}
	n := len(out)
	respondData(w, r, http.StatusOK, out, Metadata{Count: &n})
}

// Reducers handles GET /api/v1/reducers.
func (h *Handler) Reducers(w http.ResponseWriter, r *http.Request) {
	def := h.engine.Config().DefaultReducer
	reducers := exposure.Reducers()
	out := make([]ReducerInfo, 0, len(reducers))
	for _, red := range reducers {
		info := ReducerInfo{Name: red.String(), Default: red == def}
		if red == exposure.MinMaxRatio || red == exposure.MaxMinRatio {
			info.Parity = 1
		}
		out = append(out, info)
	}
	n := len(out)
	respondData(w, r, http.StatusOK, out, Metadata{Count: &n})
}

// ExposureMetrics handles GET /api/v1/exposure/metrics.
func (h *Handler) ExposureMetrics(w http.ResponseWriter, r *http.Request) {
	def := h.engine.Config().DefaultMetric
	all := exposure.Metrics()
	out := make([]MetricInfo, 0, len(all))
	for _, m := range all {
		info := MetricInfo{Name: string(m), Default: m == def}
		switch m {
		case exposure.MetricEXPU:
			info.Requires = []string{"relevance"}
		case exposure.MetricEXPRU:
			info.Requires = []string{"relevance", "ctr"}
		}
		out = append(out, info)
	}
	n := len(out)
	respondData(w, r, http.StatusOK, out, Metadata{Count: &n})
}

// Presets handles GET /api/v1/presets.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	presets := h.engine.Presets()
	n := len(presets)
	respondData(w, r, http.StatusOK, presets, Metadata{Count: &n})
}

// Preset handles GET /api/v1/presets/{name}.
func (h *Handler) Preset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, p := range h.engine.Presets() {
		if p.Name == name {
			respondData(w, r, http.StatusOK, p, Metadata{})
			return
		}
	}
	respondError(w, r, http.StatusNotFound, &APIError{
		Code:    CodeNotFound,
		Message: "preset not found",
		Details: map[string]interface{}{"name": sanitizeLogValue(name)},
	}, nil)
}
