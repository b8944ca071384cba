// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package exposure

import (
	"fmt"
	"strings"

	"github.com/tomtom215/fairrank/internal/rerank"
)

// Metric selects the per-group statistic.
type Metric string

const (
	MetricEXP   Metric = "EXP"
	MetricEXPU  Metric = "EXPU"
	MetricEXPRU Metric = "EXPRU"
)

// Metrics lists the supported metrics.
func Metrics() []Metric {
	return []Metric{MetricEXP, MetricEXPU, MetricEXPRU}
}

// ParseMetric resolves a case-insensitive metric name.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToUpper(strings.TrimSpace(name))) {
	case MetricEXP:
		return MetricEXP, nil
	case MetricEXPU:
		return MetricEXPU, nil
	case MetricEXPRU:
		return MetricEXPRU, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

// Input is a ranking in output order. Relevance is required by EXPU and
// EXPRU, CTR by EXPRU.
type Input struct {
	Groups    []rerank.GroupID
	Relevance []float64
	CTR       []float64
}

// Report is one evaluated metric.
type Report struct {
	Metric  Metric  `json:"metric"`
	Reducer Reducer `json:"reducer"`
	Score   float64 `json:"score"`
	Groups  Values  `json:"groups"`
}

// Evaluate computes metric on in and reduces it with reducer.
func Evaluate(metric Metric, in Input, reducer Reducer) (*Report, error) {
	if !reducer.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownReducer, uint8(reducer))
	}

	var (
		vals Values
		err  error
	)
	switch metric {
	case MetricEXP:
		vals, err = Exposure(in.Groups)
	case MetricEXPU:
		vals, err = ExposureUtility(in.Groups, in.Relevance)
	case MetricEXPRU:
		vals, err = RealizedUtility(in.Groups, in.Relevance, in.CTR)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	if err != nil {
		return nil, fmt.Errorf("compute %s: %w", metric, err)
	}

	score, err := reducer.Reduce(vals)
	if err != nil {
		return nil, fmt.Errorf("reduce %s: %w", metric, err)
	}

	return &Report{
		Metric:  metric,
		Reducer: reducer,
		Score:   score,
		Groups:  vals,
	}, nil
}
