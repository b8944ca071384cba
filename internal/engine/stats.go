// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package engine

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/tomtom215/fairrank/internal/rerank"
)

type algorithmStats struct {
	runs      *xsync.Counter
	short     *xsync.Counter
	errors    *xsync.Counter
	coalesced *xsync.Counter
	cacheHits *xsync.Counter
	itemsIn   *xsync.Counter
	itemsOut  *xsync.Counter
}

func newAlgorithmStats() *algorithmStats {
	return &algorithmStats{
		runs:      xsync.NewCounter(),
		short:     xsync.NewCounter(),
		errors:    xsync.NewCounter(),
		coalesced: xsync.NewCounter(),
		cacheHits: xsync.NewCounter(),
		itemsIn:   xsync.NewCounter(),
		itemsOut:  xsync.NewCounter(),
	}
}

func (s *algorithmStats) record(in, out int, short bool) {
	s.runs.Inc()
	s.itemsIn.Add(int64(in))
	s.itemsOut.Add(int64(out))
	if short {
		s.short.Inc()
	}
}

func (e *Engine) statsFor(alg rerank.Algorithm) *algorithmStats {
	if s, ok := e.stats.Load(alg); ok {
		return s
	}
	s, _ := e.stats.LoadOrStore(alg, newAlgorithmStats())
	return s
}

// AlgorithmStats are in-process counters for one algorithm since start.
type AlgorithmStats struct {
	Algorithm string `json:"algorithm"`
	Runs      int64  `json:"runs"`
	Short     int64  `json:"short"`
	Errors    int64  `json:"errors"`
	Coalesced int64  `json:"coalesced"`
	CacheHits int64  `json:"cache_hits"`
	ItemsIn   int64  `json:"items_in"`
	ItemsOut  int64  `json:"items_out"`
}

// Stats returns per-algorithm counters ordered by algorithm name.
func (e *Engine) Stats() []AlgorithmStats {
	out := []AlgorithmStats{}
	e.stats.Range(func(alg rerank.Algorithm, s *algorithmStats) bool {
		out = append(out, AlgorithmStats{
			Algorithm: string(alg),
			Runs:      s.runs.Value(),
			Short:     s.short.Value(),
			Errors:    s.errors.Value(),
			Coalesced: s.coalesced.Value(),
			CacheHits: s.cacheHits.Value(),
			ItemsIn:   s.itemsIn.Value(),
			ItemsOut:  s.itemsOut.Value(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Algorithm < out[j].Algorithm })
	return out
}
