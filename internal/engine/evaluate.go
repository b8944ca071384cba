// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package engine

import (
	"context"
	"fmt"

	"github.com/tomtom215/fairrank/internal/exposure"
	"github.com/tomtom215/fairrank/internal/metrics"
	"github.com/tomtom215/fairrank/internal/rerank"
)

// Evaluate computes an exposure metric over a ranking.
func (e *Engine) Evaluate(ctx context.Context, req ExposureRequest) (*exposure.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.cfg.ExposureMaxItems > 0 && len(req.Groups) > e.cfg.ExposureMaxItems {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrTooManyItems, len(req.Groups), e.cfg.ExposureMaxItems)
	}

	metric := e.cfg.DefaultMetric
	if req.Metric != "" {
		m, err := exposure.ParseMetric(req.Metric)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		metric = m
	}
	reducer := e.cfg.DefaultReducer
	if req.Reducer != "" {
		r, err := exposure.ParseReducer(req.Reducer)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		reducer = r
	}

	in := exposure.Input{
		Groups:    make([]rerank.GroupID, len(req.Groups)),
		Relevance: req.Relevance,
		CTR:       req.CTR,
	}
	for i, g := range req.Groups {
		in.Groups[i] = rerank.GroupID(g)
	}

	report, err := exposure.Evaluate(metric, in, reducer)
	metrics.RecordExposure(string(metric), reducer.String(), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return report, nil
}
