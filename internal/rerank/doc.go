// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package rerank implements group-fair post-processing of ranked lists.
//
// An upstream ranker produces items sorted by descending score. The rerankers
// in this package reorder that list so the share of each group in every
// prefix tracks a target distribution, while disturbing score order as
// little as the constraint allows.
//
// # Overview
//
//	Upstream ranker -> Ranking (items, groups, scores) -> Reranker -> Result
//	                                 ^
//	                       Distribution (target share per group)
//
// # Available Rerankers
//
// DetConSort (default):
//   - Greedy constrained sorting from Geyik et al., "Fairness-Aware Ranking
//     in Search & Recommendation Systems" (KDD 2019)
//   - Guarantees every group reaches floor(t * p) items by prefix t while
//     it still has supply
//   - Repairs score inversions among recently placed items only
//
// Calibrated:
//   - Greedy selection balancing relevance against the KL divergence
//     between the prefix group distribution and the target (Steck, 2018)
//
// MMR:
//   - Maximal marginal relevance with group membership as similarity,
//     penalising runs of the same group inside a sliding window
//
// # Group Identifiers
//
// Group ids are dense indices 0..G-1 where G is the number of fractions in
// the Distribution. They are validated once when the per-group queues are
// built; an id outside that range fails the call with ErrGroupOutOfRange.
//
// # Short Results
//
// When fewer than k items can be placed the Result is shorter than k and
// Result.Short is set. Results are never padded.
//
// # Thread Safety
//
// All per-call state is owned by the call. Rerankers hold only immutable
// options and may be shared between goroutines.
//
// # Usage Example
//
//	dist, err := rerank.NewDistribution([]float64{0.5, 0.5})
//	if err != nil {
//	    return err
//	}
//	res, err := rerank.DetConSort(rerank.Ranking[string]{
//	    Items:  []string{"a", "b", "c", "d", "e"},
//	    Groups: []rerank.GroupID{0, 0, 0, 0, 1},
//	    Scores: []float64{5, 4, 3, 2, 1},
//	}, dist, 4)
//	// res.Items == [a e b c]
package rerank
