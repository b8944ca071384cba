// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

// assemble copies the first min(k, filled) slots back to caller values.
// Groups come from the input ranking at each slot's original position.
func assemble[T any](r Ranking[T], buf *slotBuffer, k, iterations int) *Result[T] {
	n := min(k, buf.len())
	res := &Result[T]{
		Items:      make([]T, n),
		Groups:     make([]GroupID, n),
		Scores:     make([]float64, n),
		Positions:  make([]int, n),
		Stamps:     make([]int, n),
		Requested:  k,
		Short:      n < k,
		Iterations: iterations,
	}
	for i := 0; i < n; i++ {
		idx := buf.index[i]
		res.Items[i] = r.Items[idx]
		res.Groups[i] = r.Groups[idx]
		res.Scores[i] = r.Scores[idx]
		res.Positions[i] = idx
		res.Stamps[i] = buf.stamp[i]
	}
	return res
}
