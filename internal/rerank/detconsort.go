// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"context"
	"sort"
)

// slotBuffer is the constructed ranking. The four slices always share one
// index and are only mutated together.
type slotBuffer struct {
	index []int
	score []float64
	group []GroupID
	stamp []int
}

func newSlotBuffer(capacity int) *slotBuffer {
	return &slotBuffer{
		index: make([]int, 0, capacity),
		score: make([]float64, 0, capacity),
		group: make([]GroupID, 0, capacity),
		stamp: make([]int, 0, capacity),
	}
}

func (b *slotBuffer) len() int {
	return len(b.index)
}

// append places e in the next open slot stamped with iteration t and
// returns the slot.
func (b *slotBuffer) append(e queueEntry, t int) int {
	b.index = append(b.index, e.index)
	b.score = append(b.score, e.score)
	b.group = append(b.group, e.group)
	b.stamp = append(b.stamp, t)
	return len(b.index) - 1
}

func (b *slotBuffer) swap(i, j int) {
	b.index[i], b.index[j] = b.index[j], b.index[i]
	b.score[i], b.score[j] = b.score[j], b.score[i]
	b.group[i], b.group[j] = b.group[j], b.group[i]
	b.stamp[i], b.stamp[j] = b.stamp[j], b.stamp[i]
}

// settle walks the item at slot pos backward past lower-scored neighbours.
// A neighbour stamped at iteration s may only be pushed down to 1-based
// position s, so it never leaves the prefix it was placed to fill.
func (b *slotBuffer) settle(pos int) int {
	for pos > 0 && b.stamp[pos-1] >= pos+1 && b.score[pos-1] < b.score[pos] {
		b.swap(pos-1, pos)
		pos--
	}
	return pos
}

// insertionEngine runs the DetConSort loop over prepared group queues.
type insertionEngine struct {
	queues  []groupQueue
	tracker *targetTracker
	buf     *slotBuffer
	k       int
	total   int

	// t is the iteration counter. Each value is one attempted output slot.
	t int

	under      []GroupID
	candidates []queueEntry
}

func newInsertionEngine(queues []groupQueue, dist Distribution, k, total int) *insertionEngine {
	// the last iteration may place one item per group past k
	capacity := min(total, min(k, total)+dist.Groups())
	return &insertionEngine{
		queues:     queues,
		tracker:    newTargetTracker(dist),
		buf:        newSlotBuffer(capacity),
		k:          k,
		total:      total,
		under:      make([]GroupID, 0, dist.Groups()),
		candidates: make([]queueEntry, 0, dist.Groups()),
	}
}

// run iterates while at most k slots are filled and items remain.
func (e *insertionEngine) run() {
	for e.buf.len() <= e.k && e.buf.len() < e.total {
		next := e.tracker.next(e.t, e.queues)
		if next == 0 {
			return
		}
		e.t = next
		e.step()
	}
}

// step places one candidate from every under-served group at iteration t.
func (e *insertionEngine) step() {
	e.under = e.tracker.underServed(e.t, e.queues, e.under)
	if len(e.under) == 0 {
		return
	}

	e.candidates = e.candidates[:0]
	for _, g := range e.under {
		e.candidates = append(e.candidates, e.queues[g].peek())
	}
	sort.SliceStable(e.candidates, func(i, j int) bool {
		a, b := e.candidates[i], e.candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		return a.index < b.index
	})

	for _, c := range e.candidates {
		e.queues[c.group].pop()
		pos := e.buf.append(c, e.t)
		e.buf.settle(pos)
		e.tracker.place(c.group)
	}
}

// DetConSort reranks r so that by every prefix length t each group g with
// remaining supply holds at least floor(t * p[g]) items. Candidates of one
// iteration enter in descending score order and are moved up past items
// whose placement iteration allows it.
//
// The returned Result has min(k, len(r.Items)) items unless only groups with
// a zero target remain, in which case it stops early. Either way Short is
// set when fewer than k items were produced.
func DetConSort[T any](r Ranking[T], dist Distribution, k int) (*Result[T], error) {
	if err := checkCall(r, dist, k); err != nil {
		return nil, err
	}

	queues, err := buildQueues(r.Groups, r.Scores, dist)
	if err != nil {
		return nil, err
	}

	e := newInsertionEngine(queues, dist, k, r.Len())
	e.run()

	return assemble(r, e.buf, k, e.t), nil
}

// DetConSortReranker adapts DetConSort to the Reranker interface.
type DetConSortReranker[T any] struct{}

// NewDetConSort creates a DetConSort reranker.
func NewDetConSort[T any]() *DetConSortReranker[T] {
	return &DetConSortReranker[T]{}
}

// Name returns the reranker identifier.
func (d *DetConSortReranker[T]) Name() string {
	return string(AlgorithmDetConSort)
}

// Rerank runs DetConSort. The context is checked once before starting; the
// loop itself is bounded by k and the input size.
func (d *DetConSortReranker[T]) Rerank(ctx context.Context, r Ranking[T], dist Distribution, k int) (*Result[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return DetConSort(r, dist, k)
}

var _ Reranker[string] = (*DetConSortReranker[string])(nil)
