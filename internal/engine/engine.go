// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package engine runs rerank and exposure requests on behalf of the HTTP
// API and the event processor. It resolves presets, applies limits,
// coalesces identical concurrent requests, caches results, persists run
// records and records metrics.
package engine

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/fairrank/internal/analytics"
	"github.com/tomtom215/fairrank/internal/cache"
	"github.com/tomtom215/fairrank/internal/config"
	"github.com/tomtom215/fairrank/internal/exposure"
	"github.com/tomtom215/fairrank/internal/rerank"
	"github.com/tomtom215/fairrank/internal/store"
)

// RunStore persists run records. Implemented by *store.Store.
type RunStore interface {
	Save(ctx context.Context, run *store.Run) error
	Get(ctx context.Context, id string) (*store.Run, error)
	List(ctx context.Context, opts store.ListOptions) ([]*store.Run, error)
}

// RunAnalytics aggregates run records. Implemented by *analytics.DB.
type RunAnalytics interface {
	Record(ctx context.Context, run *store.Run) error
	Summary(ctx context.Context, since time.Time) ([]analytics.AlgorithmSummary, error)
}

// Config holds engine limits and defaults.
type Config struct {
	DefaultAlgorithm rerank.Algorithm
	Options          rerank.Options
	SumTolerance     float64
	MaxItems         int
	MaxGroups        int
	Timeout          time.Duration
	AuditFloors      bool

	DefaultMetric    exposure.Metric
	DefaultReducer   exposure.Reducer
	ExposureMaxItems int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		DefaultAlgorithm: rerank.AlgorithmDetConSort,
		Options:          rerank.DefaultOptions(),
		SumTolerance:     rerank.DefaultSumTolerance,
		MaxItems:         10000,
		MaxGroups:        64,
		Timeout:          5 * time.Second,
		AuditFloors:      true,
		DefaultMetric:    exposure.MetricEXP,
		DefaultReducer:   exposure.MinMaxRatio,
		ExposureMaxItems: 10000,
	}
}

// ConfigFrom converts the loaded application config.
func ConfigFrom(cfg *config.Config) (Config, error) {
	alg, err := rerank.ParseAlgorithm(cfg.Rerank.DefaultAlgorithm)
	if err != nil {
		return Config{}, err
	}
	metric, err := exposure.ParseMetric(cfg.Exposure.DefaultMetric)
	if err != nil {
		return Config{}, err
	}
	reducer, err := exposure.ParseReducer(cfg.Exposure.DefaultReducer)
	if err != nil {
		return Config{}, err
	}
	return Config{
		DefaultAlgorithm: alg,
		Options:          rerank.Options{Lambda: cfg.Rerank.Lambda, Window: cfg.Rerank.Window},
		SumTolerance:     cfg.Rerank.SumTolerance,
		MaxItems:         cfg.Rerank.MaxItems,
		MaxGroups:        cfg.Rerank.MaxGroups,
		Timeout:          cfg.Rerank.Timeout,
		AuditFloors:      cfg.Rerank.AuditFloors,
		DefaultMetric:    metric,
		DefaultReducer:   reducer,
		ExposureMaxItems: cfg.Exposure.MaxItems,
	}, nil
}

// Engine is safe for concurrent use.
type Engine struct {
	cfg       Config
	presets   *config.Presets
	cache     cache.Tier
	store     RunStore
	analytics RunAnalytics

	flight singleflight.Group
	stats  *xsync.Map[rerank.Algorithm, *algorithmStats]
}

// Option configures an Engine.
type Option func(*Engine)

// WithPresets sets the named distributions requests may refer to.
func WithPresets(p *config.Presets) Option {
	return func(e *Engine) { e.presets = p }
}

// WithCache enables result caching.
func WithCache(c cache.Tier) Option {
	return func(e *Engine) { e.cache = c }
}

// WithStore enables run history.
func WithStore(s RunStore) Option {
	return func(e *Engine) { e.store = s }
}

// WithAnalytics enables run analytics.
func WithAnalytics(a RunAnalytics) Option {
	return func(e *Engine) { e.analytics = a }
}

// New creates an engine.
func New(cfg Config, opts ...Option) *Engine {
	if cfg.SumTolerance <= 0 {
		cfg.SumTolerance = rerank.DefaultSumTolerance
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.DefaultAlgorithm == "" {
		cfg.DefaultAlgorithm = rerank.AlgorithmDetConSort
	}

	e := &Engine{
		cfg:     cfg,
		presets: config.DefaultPresets(),
		stats:   xsync.NewMap[rerank.Algorithm, *algorithmStats](),
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, alg := range rerank.Algorithms() {
		e.stats.Store(alg, newAlgorithmStats())
	}
	return e
}

// Presets returns the configured presets.
func (e *Engine) Presets() []config.Preset {
	return e.presets.List()
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}
