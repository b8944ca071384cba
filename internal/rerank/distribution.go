// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"fmt"
	"math"
)

// DefaultSumTolerance is the allowed deviation of the fraction sum from 1.
const DefaultSumTolerance = 1e-6

// GroupID is a dense group index in 0..G-1.
type GroupID int

// Distribution is a validated target share per group, indexed by GroupID.
// The zero value has no groups and is rejected by every reranker.
type Distribution struct {
	fractions []float64
}

// NewDistribution validates fractions with DefaultSumTolerance.
func NewDistribution(fractions []float64) (Distribution, error) {
	return NewDistributionTolerance(fractions, DefaultSumTolerance)
}

// NewDistributionTolerance validates fractions against a custom sum tolerance.
// The slice is copied.
func NewDistributionTolerance(fractions []float64, tolerance float64) (Distribution, error) {
	if len(fractions) == 0 {
		return Distribution{}, fmt.Errorf("%w: no groups", ErrInvalidDistribution)
	}
	if tolerance < 0 || math.IsNaN(tolerance) {
		return Distribution{}, fmt.Errorf("%w: negative sum tolerance %v", ErrInvalidDistribution, tolerance)
	}

	var sum float64
	for g, p := range fractions {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return Distribution{}, fmt.Errorf("%w: group %d has fraction %v outside [0,1]", ErrInvalidDistribution, g, p)
		}
		sum += p
	}
	if math.Abs(sum-1) > tolerance {
		return Distribution{}, fmt.Errorf("%w: fractions sum to %v", ErrInvalidDistribution, sum)
	}

	out := make([]float64, len(fractions))
	copy(out, fractions)
	return Distribution{fractions: out}, nil
}

// DistributionFromMap builds a Distribution from a group-keyed map. The keys
// must be exactly 0..len(m)-1.
func DistributionFromMap(m map[GroupID]float64) (Distribution, error) {
	fractions := make([]float64, len(m))
	for g, p := range m {
		if g < 0 || int(g) >= len(m) {
			return Distribution{}, fmt.Errorf("%w: group %d is not a dense index for %d groups", ErrGroupOutOfRange, g, len(m))
		}
		fractions[g] = p
	}
	return NewDistribution(fractions)
}

// Uniform returns an equal share for n groups.
func Uniform(n int) (Distribution, error) {
	if n <= 0 {
		return Distribution{}, fmt.Errorf("%w: %d groups", ErrInvalidDistribution, n)
	}
	fractions := make([]float64, n)
	for g := range fractions {
		fractions[g] = 1 / float64(n)
	}
	return NewDistribution(fractions)
}

// Groups returns the number of groups G.
func (d Distribution) Groups() int {
	return len(d.fractions)
}

// Contains reports whether g is a valid index for this distribution.
func (d Distribution) Contains(g GroupID) bool {
	return g >= 0 && int(g) < len(d.fractions)
}

// Fraction returns the target share of g, or 0 when g is out of range.
func (d Distribution) Fraction(g GroupID) float64 {
	if !d.Contains(g) {
		return 0
	}
	return d.fractions[g]
}

// Fractions returns a copy of the target shares.
func (d Distribution) Fractions() []float64 {
	out := make([]float64, len(d.fractions))
	copy(out, d.fractions)
	return out
}

// Floor is the fairness floor of g at prefix length t: floor(t * p[g]).
func (d Distribution) Floor(g GroupID, t int) int {
	return int(math.Floor(float64(t) * d.Fraction(g)))
}
