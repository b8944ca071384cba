// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package exposure

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/fairrank/internal/rerank"
)

// GroupValue is one group's aggregated statistic.
type GroupValue struct {
	Group rerank.GroupID `json:"group"`
	Value float64        `json:"value"`
}

// Values holds one entry per group present in the ranking, ordered by group.
type Values []GroupValue

// Map returns the values keyed by group.
func (v Values) Map() map[rerank.GroupID]float64 {
	m := make(map[rerank.GroupID]float64, len(v))
	for _, gv := range v {
		m[gv.Group] = gv.Value
	}
	return m
}

// Floats returns the values in group order.
func (v Values) Floats() []float64 {
	out := make([]float64, len(v))
	for i, gv := range v {
		out[i] = gv.Value
	}
	return out
}

// PositionExposure is the exposure of 1-based position i: 1/log2(i+1).
func PositionExposure(i int) float64 {
	return 1 / math.Log2(float64(i)+1)
}

// groupSums accumulates per-group totals of one per-item value.
type groupSums struct {
	count map[rerank.GroupID]int
	sum   map[rerank.GroupID]float64
}

func newGroupSums() *groupSums {
	return &groupSums{
		count: make(map[rerank.GroupID]int),
		sum:   make(map[rerank.GroupID]float64),
	}
}

func (s *groupSums) add(g rerank.GroupID, v float64) {
	s.count[g]++
	s.sum[g] += v
}

func (s *groupSums) mean(g rerank.GroupID) float64 {
	return s.sum[g] / float64(s.count[g])
}

func (s *groupSums) groups() []rerank.GroupID {
	gs := make([]rerank.GroupID, 0, len(s.count))
	for g := range s.count {
		gs = append(gs, g)
	}
	sort.Slice(gs, func(i, j int) bool { return gs[i] < gs[j] })
	return gs
}

func checkGroups(groups []rerank.GroupID) error {
	if len(groups) == 0 {
		return ErrEmpty
	}
	for i, g := range groups {
		if g < 0 {
			return fmt.Errorf("%w: %d at position %d", ErrInvalidGroup, g, i)
		}
	}
	return nil
}

func checkRelevance(groups []rerank.GroupID, relevance []float64) error {
	if len(relevance) != len(groups) {
		return fmt.Errorf("%w: %d groups, %d relevance values", ErrLengthMismatch, len(groups), len(relevance))
	}
	for i, r := range relevance {
		if math.IsNaN(r) || r < 0 || r > 1 {
			return fmt.Errorf("%w: %v at position %d", ErrRelevanceOutOfRange, r, i)
		}
	}
	return nil
}

// Exposure (EXP) returns each group's average positional exposure.
func Exposure(groups []rerank.GroupID) (Values, error) {
	if err := checkGroups(groups); err != nil {
		return nil, err
	}

	exp := newGroupSums()
	for i, g := range groups {
		exp.add(g, PositionExposure(i+1))
	}

	gs := exp.groups()
	out := make(Values, len(gs))
	for i, g := range gs {
		out[i] = GroupValue{Group: g, Value: exp.mean(g)}
	}
	return out, nil
}

// ExposureUtility (EXPU) returns each group's average exposure divided by its
// average relevance.
func ExposureUtility(groups []rerank.GroupID, relevance []float64) (Values, error) {
	if err := checkGroups(groups); err != nil {
		return nil, err
	}
	if err := checkRelevance(groups, relevance); err != nil {
		return nil, err
	}

	exp := newGroupSums()
	rel := newGroupSums()
	for i, g := range groups {
		exp.add(g, PositionExposure(i+1))
		rel.add(g, relevance[i])
	}

	return ratios(exp, rel)
}

// RealizedUtility (EXPRU) returns each group's average click-through rate
// divided by its average relevance.
func RealizedUtility(groups []rerank.GroupID, relevance, ctr []float64) (Values, error) {
	if err := checkGroups(groups); err != nil {
		return nil, err
	}
	if err := checkRelevance(groups, relevance); err != nil {
		return nil, err
	}
	if len(ctr) != len(groups) {
		return nil, fmt.Errorf("%w: %d groups, %d click-through rates", ErrLengthMismatch, len(groups), len(ctr))
	}

	clicks := newGroupSums()
	rel := newGroupSums()
	for i, g := range groups {
		c := ctr[i]
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return nil, fmt.Errorf("%w: %v at position %d", ErrInvalidCTR, c, i)
		}
		clicks.add(g, c)
		rel.add(g, relevance[i])
	}

	return ratios(clicks, rel)
}

func ratios(num, den *groupSums) (Values, error) {
	gs := num.groups()
	out := make(Values, len(gs))
	for i, g := range gs {
		d := den.mean(g)
		if d == 0 {
			return nil, fmt.Errorf("%w: group %d has zero average relevance", ErrUndefined, g)
		}
		out[i] = GroupValue{Group: g, Value: num.mean(g) / d}
	}
	return out, nil
}
