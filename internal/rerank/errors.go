// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import "errors"

// Errors returned by the rerankers. Callers match them with errors.Is;
// returned errors wrap them with positional context.
var (
	// ErrLengthMismatch is returned when items, groups and scores differ in length.
	ErrLengthMismatch = errors.New("items, groups and scores must have equal length")

	// ErrGroupOutOfRange is returned for a negative group id or one with no
	// fraction in the target distribution.
	ErrGroupOutOfRange = errors.New("group id out of range")

	// ErrInvalidDistribution is returned when fractions are outside [0,1],
	// do not sum to 1, or the distribution is empty.
	ErrInvalidDistribution = errors.New("invalid target distribution")

	// ErrInvalidK is returned when the requested output length is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidScore is returned for NaN or infinite scores.
	ErrInvalidScore = errors.New("score must be finite")

	// ErrUnknownAlgorithm is returned by ParseAlgorithm and New.
	ErrUnknownAlgorithm = errors.New("unknown rerank algorithm")
)
