// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package engine

import (
	"context"
	"time"

	"github.com/tomtom215/fairrank/internal/analytics"
	"github.com/tomtom215/fairrank/internal/store"
)

// Run returns a stored run.
func (e *Engine) Run(ctx context.Context, id string) (*store.Run, error) {
	if e.store == nil {
		return nil, ErrNoHistory
	}
	return e.store.Get(ctx, id)
}

// Runs lists stored runs newest-first.
func (e *Engine) Runs(ctx context.Context, opts store.ListOptions) ([]*store.Run, error) {
	if e.store == nil {
		return nil, ErrNoHistory
	}
	return e.store.List(ctx, opts)
}

// Summary aggregates runs since the given time per algorithm.
func (e *Engine) Summary(ctx context.Context, since time.Time) ([]analytics.AlgorithmSummary, error) {
	if e.analytics == nil {
		return nil, ErrNoAnalytics
	}
	return e.analytics.Summary(ctx, since)
}
