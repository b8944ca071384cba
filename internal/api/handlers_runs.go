// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/fairrank/internal/analytics"
	"github.com/tomtom215/fairrank/internal/engine"
	"github.com/tomtom215/fairrank/internal/middleware"
	"github.com/tomtom215/fairrank/internal/store"
)

// runsQuery holds the query parameters of GET /api/v1/runs.
type runsQuery struct {
	Limit     int    `json:"limit" validate:"min=1,max=1000"`
	Algorithm string `json:"algorithm" validate:"omitempty,algorithm"`
	Before    string `json:"before" validate:"omitempty,uuid"`
}

// runPath holds the path parameters of GET /api/v1/runs/{id}.
type runPath struct {
	ID string `json:"id" validate:"required,uuid"`
}

// getIntParam extracts an integer query parameter with a default value.
// Unparseable values yield -1 so validation rejects them.
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return n
}

// Runs handles GET /api/v1/runs?limit=&algorithm=&before=.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	q := runsQuery{
		Limit:     getIntParam(r, "limit", store.DefaultListLimit),
		Algorithm: r.URL.Query().Get("algorithm"),
		Before:    r.URL.Query().Get("before"),
	}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	runs, err := h.engine.Runs(r.Context(), store.ListOptions{
		Limit:     q.Limit,
		Algorithm: q.Algorithm,
		Before:    q.Before,
	})
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	if runs == nil {
		runs = []*store.Run{}
	}

	n := len(runs)
	respondData(w, r, http.StatusOK, runs, Metadata{Count: &n})
}

// Run handles GET /api/v1/runs/{id}.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	p := runPath{ID: chi.URLParam(r, "id")}
	if apiErr := validateRequest(&p); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	run, err := h.engine.Run(r.Context(), p.ID)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, run, Metadata{})
}

// RunStats is the body of GET /api/v1/runs/stats.
type RunStats struct {
	// Live holds in-process counters since start.
	Live []engine.AlgorithmStats `json:"live"`

	// History aggregates persisted runs. Nil when analytics are disabled.
	History []analytics.AlgorithmSummary `json:"history"`

	Since *time.Time `json:"since,omitempty"`
}

// parseSince accepts an RFC3339 timestamp or a Go duration counted back
// from now ("24h"). Empty means all time.
func parseSince(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, errors.New("since must be an RFC3339 time or a duration such as 24h")
	}
	if d < 0 {
		return time.Time{}, errors.New("since duration must not be negative")
	}
	return now.Add(-d), nil
}

// RunStats handles GET /api/v1/runs/stats?since=.
func (h *Handler) RunStats(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"), time.Now().UTC())
	if err != nil {
		respondError(w, r, http.StatusBadRequest, &APIError{
			Code:    CodeValidation,
			Message: err.Error(),
			Details: map[string]interface{}{"field": "since"},
		}, nil)
		return
	}

	out := RunStats{Live: h.engine.Stats()}
	if !since.IsZero() {
		out.Since = &since
	}

	history, err := h.engine.Summary(r.Context(), since)
	switch {
	case errors.Is(err, engine.ErrNoAnalytics):
	case err != nil:
		respondEngineError(w, r, err)
		return
	default:
		out.History = history
	}

	respondData(w, r, http.StatusOK, out, Metadata{})
}

// HTTPStats handles GET /api/v1/stats/http.
func (h *Handler) HTTPStats(w http.ResponseWriter, r *http.Request) {
	stats := []middleware.EndpointStats{}
	if h.monitor != nil {
		stats = h.monitor.Stats()
	}
	n := len(stats)
	respondData(w, r, http.StatusOK, stats, Metadata{Count: &n})
}
