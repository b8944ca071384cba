// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package api

import (
	"net/http"

	"github.com/tomtom215/fairrank/internal/engine"
	"github.com/tomtom215/fairrank/internal/logging"
)

// exposureSpec is the optional before/after comparison of a rerank request.
type exposureSpec struct {
	Metric  string `json:"metric,omitempty" validate:"omitempty,metric"`
	Reducer string `json:"reducer,omitempty" validate:"omitempty,reducer"`
}

// rerankRequest is the body of POST /api/v1/rerank. Shape is checked here;
// the engine enforces limits and cross-field rules.
type rerankRequest struct {
	RequestID    string        `json:"request_id,omitempty" validate:"omitempty,max=128"`
	Items        []engine.Item `json:"items"`
	Distribution []float64     `json:"distribution,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	Preset       string        `json:"preset,omitempty" validate:"omitempty,max=64"`
	K            int           `json:"k,omitempty" validate:"gte=0"`
	Algorithm    string        `json:"algorithm,omitempty" validate:"omitempty,algorithm"`
	Lambda       *float64      `json:"lambda,omitempty" validate:"omitempty,gte=0,lte=1"`
	Window       *int          `json:"window,omitempty" validate:"omitempty,gte=1"`
	Exposure     *exposureSpec `json:"exposure,omitempty"`
	NoCache      bool          `json:"no_cache,omitempty"`
}

func (req *rerankRequest) toEngine(r *http.Request) engine.Request {
	out := engine.Request{
		RequestID:    req.RequestID,
		Source:       "http",
		Items:        req.Items,
		Distribution: req.Distribution,
		Preset:       req.Preset,
		K:            req.K,
		Algorithm:    req.Algorithm,
		Lambda:       req.Lambda,
		Window:       req.Window,
		NoCache:      req.NoCache,
	}
	if out.RequestID == "" {
		out.RequestID = logging.RequestIDFromContext(r.Context())
	}
	if req.Exposure != nil {
		out.Exposure = &engine.ExposureSpec{Metric: req.Exposure.Metric, Reducer: req.Exposure.Reducer}
	}
	return out
}

// Rerank handles POST /api/v1/rerank.
//
// Example request:
//
//	{
//	  "items": [{"id": "a", "group": 0, "score": 0.9}, {"id": "b", "group": 1, "score": 0.4}],
//	  "distribution": [0.5, 0.5],
//	  "k": 2
//	}
func (h *Handler) Rerank(w http.ResponseWriter, r *http.Request) {
	var req rerankRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	out, err := h.engine.Rerank(r.Context(), req.toEngine(r))
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, out, Metadata{
		DurationMicros: out.Duration.Microseconds(),
		Cached:         out.Cached,
	})
}

// exposureRequest is the body of POST /api/v1/exposure.
type exposureRequest struct {
	Groups    []int     `json:"groups" validate:"dive,gte=0"`
	Relevance []float64 `json:"relevance,omitempty" validate:"omitempty,dive,gte=0,lte=1"`
	CTR       []float64 `json:"ctr,omitempty" validate:"omitempty,dive,gte=0"`
	Metric    string    `json:"metric,omitempty" validate:"omitempty,metric"`
	Reducer   string    `json:"reducer,omitempty" validate:"omitempty,reducer"`
}

// Exposure handles POST /api/v1/exposure.
func (h *Handler) Exposure(w http.ResponseWriter, r *http.Request) {
	var req exposureRequest
	if err := decodeJSON(r, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	report, err := h.engine.Evaluate(r.Context(), engine.ExposureRequest{
		Groups:    req.Groups,
		Relevance: req.Relevance,
		CTR:       req.CTR,
		Metric:    req.Metric,
		Reducer:   req.Reducer,
	})
	if err != nil {
		respondEngineError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, report, Metadata{})
}
