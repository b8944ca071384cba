// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import "fmt"

// queueEntry is one input item inside its group queue.
type queueEntry struct {
	score float64
	group GroupID
	index int // 0-based input position
}

// groupQueue holds one group's items in input order and a consumption cursor.
type groupQueue struct {
	entries []queueEntry
	cursor  int
}

func (q *groupQueue) remaining() int {
	return len(q.entries) - q.cursor
}

func (q *groupQueue) peek() queueEntry {
	return q.entries[q.cursor]
}

func (q *groupQueue) pop() queueEntry {
	e := q.entries[q.cursor]
	q.cursor++
	return e
}

// buildQueues partitions the input into one queue per group of dist,
// preserving relative order. Every group id is validated here; groups with
// no items get an empty queue.
func buildQueues(groups []GroupID, scores []float64, dist Distribution) ([]groupQueue, error) {
	counts := make([]int, dist.Groups())
	for i, g := range groups {
		if !dist.Contains(g) {
			return nil, fmt.Errorf("%w: group %d at position %d, distribution has %d groups",
				ErrGroupOutOfRange, g, i, dist.Groups())
		}
		counts[g]++
	}

	queues := make([]groupQueue, dist.Groups())
	for g := range queues {
		queues[g].entries = make([]queueEntry, 0, counts[g])
	}
	for i, g := range groups {
		queues[g].entries = append(queues[g].entries, queueEntry{
			score: scores[i],
			group: g,
			index: i,
		})
	}
	return queues, nil
}

// Supply counts the items of each group in 0..numGroups-1. Out-of-range ids
// are ignored.
func Supply(groups []GroupID, numGroups int) []int {
	supply := make([]int, numGroups)
	for _, g := range groups {
		if g >= 0 && int(g) < numGroups {
			supply[g]++
		}
	}
	return supply
}
