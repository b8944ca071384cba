// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package engine

import (
	"time"

	"github.com/tomtom215/fairrank/internal/exposure"
	"github.com/tomtom215/fairrank/internal/rerank"
)

// Item is one candidate.
type Item struct {
	ID    string  `json:"id"`
	Group int     `json:"group"`
	Score float64 `json:"score"`

	// Relevance in [0,1] and CTR are only needed for EXPU and EXPRU.
	Relevance *float64 `json:"relevance,omitempty"`
	CTR       *float64 `json:"ctr,omitempty"`
}

// ExposureSpec asks for a before/after exposure comparison.
type ExposureSpec struct {
	Metric  string `json:"metric,omitempty"`
	Reducer string `json:"reducer,omitempty"`
}

// Request is a rerank request.
type Request struct {
	// RequestID and Source are copied to the run record.
	RequestID string `json:"request_id,omitempty"`
	Source    string `json:"-"`

	Items []Item `json:"items"`

	// Exactly one of Distribution and Preset must be set.
	Distribution []float64 `json:"distribution,omitempty"`
	Preset       string    `json:"preset,omitempty"`

	// K is the output length. Zero means len(Items).
	K int `json:"k,omitempty"`

	// Algorithm defaults to the configured algorithm.
	Algorithm string   `json:"algorithm,omitempty"`
	Lambda    *float64 `json:"lambda,omitempty"`
	Window    *int     `json:"window,omitempty"`

	Exposure *ExposureSpec `json:"exposure,omitempty"`

	// NoCache bypasses the result cache.
	NoCache bool `json:"no_cache,omitempty"`
}

// RankedItem is an output item.
type RankedItem struct {
	Item

	// Rank is the 0-based output position.
	Rank int `json:"rank"`

	// InputPosition is the 0-based position in Request.Items.
	InputPosition int `json:"input_position"`

	// Stamp is the iteration that last placed the item (DetConSort only).
	Stamp int `json:"stamp,omitempty"`
}

// Outcome is the result of a rerank request.
type Outcome struct {
	RunID        string    `json:"run_id,omitempty"`
	Algorithm    string    `json:"algorithm"`
	Preset       string    `json:"preset,omitempty"`
	Distribution []float64 `json:"distribution"`

	Items      []RankedItem `json:"items"`
	Requested  int          `json:"requested"`
	Returned   int          `json:"returned"`
	Short      bool         `json:"short"`
	Iterations int          `json:"iterations"`

	// GroupCounts is the number of output items per group.
	GroupCounts []int `json:"group_counts"`

	FloorSatisfied bool               `json:"floor_satisfied"`
	Violations     []rerank.Violation `json:"violations,omitempty"`

	ExposureBefore *exposure.Report `json:"exposure_before,omitempty"`
	ExposureAfter  *exposure.Report `json:"exposure_after,omitempty"`

	Cached   bool          `json:"cached"`
	Duration time.Duration `json:"duration_ns"`
}

// ExposureRequest evaluates an exposure metric over a ranking given in
// output order.
type ExposureRequest struct {
	Groups    []int     `json:"groups"`
	Relevance []float64 `json:"relevance,omitempty"`
	CTR       []float64 `json:"ctr,omitempty"`
	Metric    string    `json:"metric,omitempty"`
	Reducer   string    `json:"reducer,omitempty"`
}
