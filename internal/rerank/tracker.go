// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import "math"

// maxIteration bounds the iteration counter. A group whose next floor
// increment lies beyond it is treated as never becoming under-served.
const maxIteration = math.MaxInt32

// targetTracker computes the per-iteration fairness floors and which groups
// fall below them.
type targetTracker struct {
	dist   Distribution
	placed []int
}

func newTargetTracker(dist Distribution) *targetTracker {
	return &targetTracker{
		dist:   dist,
		placed: make([]int, dist.Groups()),
	}
}

// need is floor(t * p[g]).
func (tr *targetTracker) need(g GroupID, t int) int {
	return tr.dist.Floor(g, t)
}

// underServed appends to dst, in group order, every group that has placed
// fewer items than its floor at t and still has unconsumed items.
func (tr *targetTracker) underServed(t int, queues []groupQueue, dst []GroupID) []GroupID {
	dst = dst[:0]
	for g := range queues {
		gid := GroupID(g)
		if queues[g].remaining() > 0 && tr.placed[g] < tr.need(gid, t) {
			dst = append(dst, gid)
		}
	}
	return dst
}

func (tr *targetTracker) place(g GroupID) {
	tr.placed[g]++
}

// next returns the first iteration after t at which some group with
// remaining items is under-served. Iterations in between place nothing, so
// jumping over them does not change the result. It returns 0 when no group
// will ever be under-served again, which happens once only groups with a
// zero target still hold items.
func (tr *targetTracker) next(t int, queues []groupQueue) int {
	best := 0
	for g := range queues {
		p := tr.dist.fractions[g]
		if p <= 0 || queues[g].remaining() == 0 {
			continue
		}

		target := tr.placed[g] + 1
		approx := math.Ceil(float64(target) / p)
		if approx > maxIteration {
			continue
		}

		gid := GroupID(g)
		c := max(int(approx), t+1)
		// correct float rounding in either direction
		for c > t+1 && tr.need(gid, c-1) >= target {
			c--
		}
		for tr.need(gid, c) < target {
			c++
		}

		if best == 0 || c < best {
			best = c
		}
	}
	return best
}
