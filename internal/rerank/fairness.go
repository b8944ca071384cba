// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

// Violation is a prefix at which a group holds fewer items than its floor.
type Violation struct {
	Prefix int     `json:"prefix"`
	Group  GroupID `json:"group"`
	Count  int     `json:"count"`
	Floor  int     `json:"floor"`
}

// CheckFloors audits a reranked group sequence. At every prefix length t the
// count of group g must reach min(floor(t * p[g]), supply[g]), where supply
// is the number of g items that were available in the input (see Supply).
// Groups outside the distribution are skipped.
func CheckFloors(groups []GroupID, dist Distribution, supply []int) []Violation {
	var violations []Violation
	counts := make([]int, dist.Groups())

	for i, g := range groups {
		if dist.Contains(g) {
			counts[g]++
		}
		t := i + 1
		for gi := range counts {
			gid := GroupID(gi)
			floor := dist.Floor(gid, t)
			if gi < len(supply) {
				floor = min(floor, supply[gi])
			}
			if counts[gi] < floor {
				violations = append(violations, Violation{
					Prefix: t,
					Group:  gid,
					Count:  counts[gi],
					Floor:  floor,
				})
			}
		}
	}
	return violations
}
