// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"context"
	"math"
)

// MMRReranker implements Maximal Marginal Relevance with group membership
// as the similarity measure.
//
//	MMR = argmax[lambda * rel(i) - (1-lambda) * max(sim(i, s)) for s in window]
//
// sim is 1 when two items share a group and 0 otherwise; the window is the
// last Window selected items. The target distribution is only used to
// validate group ids.
//
// Reference:
// Carbonell, J., & Goldstein, J. (1998). "The Use of MMR, Diversity-Based
// Reranking for Reordering Documents and Producing Summaries." SIGIR 1998.
type MMRReranker[T any] struct {
	lambda float64
	window int
}

// NewMMR creates an MMR reranker. Lambda is clamped to [0,1]; a window
// below 1 becomes 1.
func NewMMR[T any](lambda float64, window int) *MMRReranker[T] {
	if window < 1 {
		window = 1
	}
	return &MMRReranker[T]{lambda: clampLambda(lambda), window: window}
}

// Name returns the reranker identifier.
func (m *MMRReranker[T]) Name() string {
	return string(AlgorithmMMR)
}

// Rerank selects up to k items greedily.
func (m *MMRReranker[T]) Rerank(ctx context.Context, r Ranking[T], dist Distribution, k int) (*Result[T], error) {
	if err := checkCall(r, dist, k); err != nil {
		return nil, err
	}
	queues, err := buildQueues(r.Groups, r.Scores, dist)
	if err != nil {
		return nil, err
	}

	buf := newSlotBuffer(min(k, r.Len()))

	// pure relevance keeps input order
	if m.lambda >= 1 {
		for i := 0; i < r.Len() && buf.len() < k; i++ {
			buf.append(queueEntry{score: r.Scores[i], group: r.Groups[i], index: i}, i+1)
		}
		return assemble(r, buf, k, buf.len()), nil
	}

	norm := newScoreNormalizer(r.Scores)
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
			sim := m.windowSimilarity(buf, GroupID(g))
			score := m.lambda*norm.apply(cand.score) - (1-m.lambda)*sim
			if score > bestScore || (score == bestScore && cand.index < bestEntry.index) {
				best, bestEntry, bestScore = g, cand, score
			}
		}
		if best < 0 {
			break
		}

		queues[best].pop()
		buf.append(bestEntry, step)
	}

	return assemble(r, buf, k, step), nil
}

// windowSimilarity is 1 if g occurs among the last window placed items.
func (m *MMRReranker[T]) windowSimilarity(buf *slotBuffer, g GroupID) float64 {
	for i := buf.len() - 1; i >= 0 && i >= buf.len()-m.window; i-- {
		if buf.group[i] == g {
			return 1
		}
	}
	return 0
}

var _ Reranker[string] = (*MMRReranker[string])(nil)
