// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package exposure

import (
	"fmt"
	"math"
	"strings"
)

// Reducer collapses per-group values into one disparity score.
type Reducer uint8

const (
	reducerInvalid Reducer = iota

	// MinMaxRatio is min/max; 1 means parity.
	MinMaxRatio
	// MaxMinRatio is max/min; 1 means parity.
	MaxMinRatio
	// MaxMinDiff is max-min; 0 means parity.
	MaxMinDiff
	// MaxAbsDiff is the largest absolute deviation from the mean.
	MaxAbsDiff
	// MeanAbsDev is the mean absolute deviation from the mean.
	MeanAbsDev
	// L2Norm is the Euclidean norm of the vector.
	L2Norm
	// Variance is the population variance.
	Variance
)

var reducerNames = map[Reducer]string{
	MinMaxRatio: "MinMaxRatio",
	MaxMinRatio: "MaxMinRatio",
	MaxMinDiff:  "MaxMinDiff",
	MaxAbsDiff:  "MaxAbsDiff",
	MeanAbsDev:  "MeanAbsDev",
	L2Norm:      "L2Norm",
	Variance:    "Variance",
}

// Reducers lists every reducer in declaration order.
func Reducers() []Reducer {
	return []Reducer{MinMaxRatio, MaxMinRatio, MaxMinDiff, MaxAbsDiff, MeanAbsDev, L2Norm, Variance}
}

// ParseReducer resolves a case-insensitive reducer name. "LTwo" is accepted
// as an alias of L2Norm.
func ParseReducer(name string) (Reducer, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "ltwo" {
		return L2Norm, nil
	}
	for r, s := range reducerNames {
		if strings.ToLower(s) == n {
			return r, nil
		}
	}
	return reducerInvalid, fmt.Errorf("%w: %q", ErrUnknownReducer, name)
}

// String returns the canonical reducer name.
func (r Reducer) String() string {
	if s, ok := reducerNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Reducer(%d)", uint8(r))
}

// Valid reports whether r is one of the declared reducers.
func (r Reducer) Valid() bool {
	_, ok := reducerNames[r]
	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (r Reducer) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReducer, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Reducer) UnmarshalText(text []byte) error {
	parsed, err := ParseReducer(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Reduce applies r to the values.
func (r Reducer) Reduce(v Values) (float64, error) {
	if len(v) == 0 {
		return 0, ErrEmpty
	}
	vals := v.Floats()

	switch r {
	case MinMaxRatio:
		lo, hi := minMax(vals)
		if hi == 0 {
			return 0, fmt.Errorf("%w: %s with max 0", ErrUndefined, r)
		}
		return lo / hi, nil
	case MaxMinRatio:
		lo, hi := minMax(vals)
		if lo == 0 {
			return 0, fmt.Errorf("%w: %s with min 0", ErrUndefined, r)
		}
		return hi / lo, nil
	case MaxMinDiff:
		lo, hi := minMax(vals)
		return hi - lo, nil
	case MaxAbsDiff:
		m := mean(vals)
		var worst float64
		for _, x := range vals {
			worst = math.Max(worst, math.Abs(x-m))
		}
		return worst, nil
	case MeanAbsDev:
		m := mean(vals)
		var sum float64
		for _, x := range vals {
			sum += math.Abs(x - m)
		}
		return sum / float64(len(vals)), nil
	case L2Norm:
		var sum float64
		for _, x := range vals {
			sum += x * x
		}
		return math.Sqrt(sum), nil
	case Variance:
		m := mean(vals)
		var sum float64
		for _, x := range vals {
			sum += (x - m) * (x - m)
		}
		return sum / float64(len(vals)), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownReducer, uint8(r))
	}
}

func minMax(vals []float64) (lo, hi float64) {
	lo, hi = vals[0], vals[0]
	for _, x := range vals[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func mean(vals []float64) float64 {
	var sum float64
	for _, x := range vals {
		sum += x
	}
	return sum / float64(len(vals))
}
