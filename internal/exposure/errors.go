// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package exposure

import "errors"

var (
	ErrLengthMismatch      = errors.New("groups and per-item values must have equal length")
	ErrInvalidGroup        = errors.New("group id must be non-negative")
	ErrRelevanceOutOfRange = errors.New("relevance must be within [0,1]")
	ErrInvalidCTR          = errors.New("click-through rate must be finite and non-negative")
	ErrUnknownReducer      = errors.New("unknown reducer")
	ErrUnknownMetric       = errors.New("unknown exposure metric")
	ErrUndefined           = errors.New("value undefined for a zero denominator")
	ErrEmpty               = errors.New("no items to aggregate")
)
