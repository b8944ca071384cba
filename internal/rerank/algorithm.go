// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"fmt"
	"strings"
)

// Algorithm names a reranker. The set is closed.
type Algorithm string

const (
	AlgorithmDetConSort Algorithm = "detconsort"
	AlgorithmCalibrated Algorithm = "calibrated"
	AlgorithmMMR        Algorithm = "mmr"
)

// Algorithms lists every supported algorithm, default first.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmDetConSort, AlgorithmCalibrated, AlgorithmMMR}
}

// ParseAlgorithm resolves a case-insensitive algorithm name.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case AlgorithmDetConSort:
		return AlgorithmDetConSort, nil
	case AlgorithmCalibrated:
		return AlgorithmCalibrated, nil
	case AlgorithmMMR:
		return AlgorithmMMR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Options tune the greedy rerankers. DetConSort has no options.
type Options struct {
	// Lambda balances relevance against the group objective
	// (1 = pure relevance). Clamped to [0,1].
	Lambda float64

	// Window is how many recently selected items MMR compares against.
	Window int
}

// DefaultOptions returns the options used when a request sets none.
func DefaultOptions() Options {
	return Options{
		Lambda: 0.7,
		Window: 1,
	}
}

// New returns the reranker for alg.
func New[T any](alg Algorithm, opts Options) (Reranker[T], error) {
	switch alg {
	case AlgorithmDetConSort:
		return NewDetConSort[T](), nil
	case AlgorithmCalibrated:
		return NewCalibrated[T](opts.Lambda), nil
	case AlgorithmMMR:
		return NewMMR[T](opts.Lambda, opts.Window), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

func clampLambda(lambda float64) float64 {
	if lambda < 0 {
		return 0
	}
	if lambda > 1 {
		return 1
	}
	return lambda
}

// scoreNormalizer maps scores to [0,1] by min-max scaling so relevance and
// the group objective share a scale.
type scoreNormalizer struct {
	lo, span float64
}

func newScoreNormalizer(scores []float64) scoreNormalizer {
	if len(scores) == 0 {
		return scoreNormalizer{}
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	return scoreNormalizer{lo: lo, span: hi - lo}
}

func (n scoreNormalizer) apply(s float64) float64 {
	if n.span == 0 {
		return 1
	}
	return (s - n.lo) / n.span
}
