// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"context"
	"fmt"
	"math"
)

// Ranking is a scored list sorted by descending score. The three slices are
// aligned by position.
type Ranking[T any] struct {
	Items  []T
	Groups []GroupID
	Scores []float64
}

// Len returns the number of items.
func (r Ranking[T]) Len() int {
	return len(r.Items)
}

// validate checks shape and score values. Group ids are checked when the
// queues are built.
func (r Ranking[T]) validate() error {
	if len(r.Groups) != len(r.Items) || len(r.Scores) != len(r.Items) {
		return fmt.Errorf("%w: %d items, %d groups, %d scores",
			ErrLengthMismatch, len(r.Items), len(r.Groups), len(r.Scores))
	}
	for i, s := range r.Scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return fmt.Errorf("%w: position %d has score %v", ErrInvalidScore, i, s)
		}
	}
	return nil
}

// Result is a reranked list. Items, Groups, Scores, Positions and Stamps are
// aligned and have the same length, at most Requested.
type Result[T any] struct {
	Items  []T
	Groups []GroupID
	Scores []float64

	// Positions are the 0-based input positions of the output items.
	Positions []int

	// Stamps record the iteration at which each slot was last placed.
	Stamps []int

	// Requested is the k the caller asked for.
	Requested int

	// Short is set when fewer than Requested items could be placed.
	Short bool

	// Iterations is the value of the iteration counter when the loop ended.
	Iterations int
}

// Len returns the number of items produced.
func (r *Result[T]) Len() int {
	return len(r.Items)
}

// Missing returns how many slots of the requested length are unfilled.
func (r *Result[T]) Missing() int {
	return r.Requested - len(r.Items)
}

// Reranker reorders a ranking toward a target group distribution.
type Reranker[T any] interface {
	// Name returns the algorithm identifier.
	Name() string

	// Rerank returns at most k items. Input errors are returned, never panicked.
	Rerank(ctx context.Context, r Ranking[T], dist Distribution, k int) (*Result[T], error)
}

// checkCall validates the arguments shared by every reranker.
func checkCall[T any](r Ranking[T], dist Distribution, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if dist.Groups() == 0 {
		return fmt.Errorf("%w: no groups", ErrInvalidDistribution)
	}
	return r.validate()
}
