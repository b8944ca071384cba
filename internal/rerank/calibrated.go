// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"context"
	"math"
)

// klEpsilon smooths empty groups to avoid log(0).
const klEpsilon = 1e-10

// CalibratedReranker implements calibrated reranking over groups.
// Reference: "Calibrated Recommendations" (Steck, 2018)
//
// At each step every group offers its best remaining item and the one with
// the highest combined score is appended:
//
//	score = lambda * relevance + (1-lambda) * (1 - min(KL(p || q), 1))
//
// where p is the target distribution and q the group distribution of the
// prefix including the candidate. Relevance is min-max normalised.
type CalibratedReranker[T any] struct {
	lambda float64
}

// NewCalibrated creates a calibrated reranker. Lambda is clamped to [0,1].
func NewCalibrated[T any](lambda float64) *CalibratedReranker[T] {
	return &CalibratedReranker[T]{lambda: clampLambda(lambda)}
}

// Name returns the reranker identifier.
func (c *CalibratedReranker[T]) Name() string {
	return string(AlgorithmCalibrated)
}

// Rerank selects up to k items greedily.
func (c *CalibratedReranker[T]) Rerank(ctx context.Context, r Ranking[T], dist Distribution, k int) (*Result[T], error) {
	if err := checkCall(r, dist, k); err != nil {
		return nil, err
	}
	queues, err := buildQueues(r.Groups, r.Scores, dist)
	if err != nil {
		return nil, err
	}

	norm := newScoreNormalizer(r.Scores)
	counts := make([]float64, dist.Groups())
	buf := newSlotBuffer(min(k, r.Len()))

	step := 0
	for buf.len() < k {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		step++

		best := -1
		var bestEntry queueEntry
		bestScore := math.Inf(-1)
		for g := range queues {
			if queues[g].remaining() == 0 {
				continue
			}
			cand := queues[g].peek()

			counts[g]++
			calib := 1 - math.Min(klDivergence(dist.fractions, counts, float64(step)), 1)
			counts[g]--

			combined := c.lambda*norm.apply(cand.score) + (1-c.lambda)*calib
			if combined > bestScore || (combined == bestScore && cand.index < bestEntry.index) {
				best, bestEntry, bestScore = g, cand, combined
			}
		}
		if best < 0 {
			break
		}

		queues[best].pop()
		counts[best]++
		buf.append(bestEntry, step)
	}

	return assemble(r, buf, k, step), nil
}

// klDivergence computes KL(p || q) where q = counts / total.
func klDivergence(p, counts []float64, total float64) float64 {
	var kl float64
	for g, pv := range p {
		if pv <= 0 {
			continue
		}
		qv := counts[g] / total
		if qv <= 0 {
			qv = klEpsilon
		}
		kl += pv * math.Log(pv/qv)
	}
	return kl
}

var _ Reranker[string] = (*CalibratedReranker[string])(nil)
