// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package engine

import "errors"

// Errors returned by the engine. Errors from the rerank and exposure
// packages are wrapped with ErrInvalidRequest when they describe bad input.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrTooManyItems   = errors.New("too many items")
	ErrTooManyGroups  = errors.New("too many groups")
	ErrNoHistory      = errors.New("run history is disabled")
	ErrNoAnalytics    = errors.New("analytics are disabled")
)
