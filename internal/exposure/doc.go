// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package exposure computes group fairness-of-exposure metrics for a ranking.
//
// Reference: Singh, A., & Joachims, T. (2018). "Fairness of Exposure in
// Rankings." KDD 2018.
//
// Position i (1-based) receives exposure 1/log2(i+1). Three per-group
// statistics are available:
//
//   - EXP: average exposure of the group's items
//   - EXPU: average exposure divided by average relevance
//   - EXPRU: average click-through rate divided by average relevance
//
// The per-group vector is reduced to one disparity score by a Reducer.
// Reducers form a closed set; ParseReducer rejects unknown names.
//
// Relevance must lie in [0,1] and is checked for every metric that uses it.
package exposure
