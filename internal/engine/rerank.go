// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/fairrank/internal/cache"
	"github.com/tomtom215/fairrank/internal/exposure"
	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/metrics"
	"github.com/tomtom215/fairrank/internal/rerank"
	"github.com/tomtom215/fairrank/internal/store"
)

// plan is a validated request.
type plan struct {
	alg    rerank.Algorithm
	opts   rerank.Options
	dist   rerank.Distribution
	preset string
	k      int

	// measure is set when a before/after exposure comparison was requested.
	measure bool
	metric  exposure.Metric
	reducer exposure.Reducer

	key string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

func (e *Engine) plan(req Request) (*plan, error) {
	if len(req.Items) > e.cfg.MaxItems {
		return nil, fmt.Errorf("%w: %d items, limit %d", ErrTooManyItems, len(req.Items), e.cfg.MaxItems)
	}

	p := &plan{alg: e.cfg.DefaultAlgorithm, opts: e.cfg.Options, k: req.K}

	if req.Algorithm != "" {
		alg, err := rerank.ParseAlgorithm(req.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		p.alg = alg
	}
	if req.Lambda != nil {
		if *req.Lambda < 0 || *req.Lambda > 1 {
			return nil, invalid("lambda must be in [0, 1], got %g", *req.Lambda)
		}
		p.opts.Lambda = *req.Lambda
	}
	if req.Window != nil {
		if *req.Window < 1 {
			return nil, invalid("window must be at least 1, got %d", *req.Window)
		}
		p.opts.Window = *req.Window
	}

	fractions := req.Distribution
	switch {
	case req.Preset != "" && len(req.Distribution) > 0:
		return nil, invalid("set either distribution or preset, not both")
	case req.Preset != "":
		preset, err := e.presets.Get(req.Preset)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		fractions = preset.Fractions
		p.preset = preset.Name
	case len(req.Distribution) == 0:
		return nil, invalid("distribution or preset is required")
	}
	if e.cfg.MaxGroups > 0 && len(fractions) > e.cfg.MaxGroups {
		return nil, fmt.Errorf("%w: %d groups, limit %d", ErrTooManyGroups, len(fractions), e.cfg.MaxGroups)
	}
	dist, err := rerank.NewDistributionTolerance(fractions, e.cfg.SumTolerance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	p.dist = dist

	if p.k == 0 {
		p.k = len(req.Items)
	}
	if p.k <= 0 {
		return nil, invalid("k must be positive")
	}

	if req.Exposure != nil {
		if err := e.planExposure(p, req); err != nil {
			return nil, err
		}
	}

	p.key = fingerprint(p, req)
	return p, nil
}

func (e *Engine) planExposure(p *plan, req Request) error {
	p.measure = true
	p.metric = e.cfg.DefaultMetric
	p.reducer = e.cfg.DefaultReducer

	if req.Exposure.Metric != "" {
		m, err := exposure.ParseMetric(req.Exposure.Metric)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		p.metric = m
	}
	if req.Exposure.Reducer != "" {
		r, err := exposure.ParseReducer(req.Exposure.Reducer)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		p.reducer = r
	}

	needRelevance := p.metric == exposure.MetricEXPU || p.metric == exposure.MetricEXPRU
	needCTR := p.metric == exposure.MetricEXPRU
	for i, it := range req.Items {
		if needRelevance && it.Relevance == nil {
			return invalid("item %d: relevance is required for %s", i, p.metric)
		}
		if needCTR && it.CTR == nil {
			return invalid("item %d: ctr is required for %s", i, p.metric)
		}
	}
	return nil
}

// fingerprint keys the cache and the singleflight group. Item IDs are
// included because they are echoed in the outcome.
func fingerprint(p *plan, req Request) string {
	fp := cache.NewFingerprint().
		String(string(p.alg)).
		Float(p.opts.Lambda).
		Int(p.opts.Window).
		Int(p.k).
		String(p.preset).
		Floats(p.dist.Fractions()).
		Int(len(req.Items))

	for _, it := range req.Items {
		fp.String(it.ID).Int(it.Group).Float(it.Score)
		fp.Float(optional(it.Relevance)).Float(optional(it.CTR))
	}
	if p.measure {
		fp.String(string(p.metric)).String(p.reducer.String())
	}
	return fp.Key()
}

func optional(v *float64) float64 {
	if v == nil {
		return -1
	}
	return *v
}

// Rerank validates req, reranks its items and records the run.
func (e *Engine) Rerank(ctx context.Context, req Request) (*Outcome, error) {
	p, err := e.plan(req)
	if err != nil {
		alg := e.cfg.DefaultAlgorithm
		if a, perr := rerank.ParseAlgorithm(req.Algorithm); perr == nil {
			alg = a
		}
		e.statsFor(alg).errors.Inc()
		metrics.RecordRerank(string(alg), len(req.Items), false, 0, err)
		return nil, err
	}
	stats := e.statsFor(p.alg)

	if req.NoCache || e.cache == nil {
		return e.run(ctx, req, p)
	}

	if out, ok := e.cached(ctx, p.key); ok {
		stats.cacheHits.Inc()
		return out, nil
	}

	// The shared run outlives any single caller and is bounded by the
	// configured timeout instead.
	ch := e.flight.DoChan(p.key, func() (any, error) {
		return e.run(context.WithoutCancel(ctx), req, p)
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-ch:
	}
	if r.Shared {
		metrics.RecordCoalesced()
		stats.coalesced.Inc()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	out := *r.Val.(*Outcome)
	return &out, nil
}

func (e *Engine) cached(ctx context.Context, key string) (*Outcome, bool) {
	data, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var out Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return nil, false
	}
	out.Cached = true
	return &out, true
}

func (e *Engine) run(ctx context.Context, req Request, p *plan) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	stats := e.statsFor(p.alg)
	ranking := rerank.Ranking[Item]{
		Items:  req.Items,
		Groups: make([]rerank.GroupID, len(req.Items)),
		Scores: make([]float64, len(req.Items)),
	}
	for i, it := range req.Items {
		ranking.Groups[i] = rerank.GroupID(it.Group)
		ranking.Scores[i] = it.Score
	}

	reranker, err := rerank.New[Item](p.alg, p.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	start := time.Now()
	res, err := reranker.Rerank(ctx, ranking, p.dist, p.k)
	elapsed := time.Since(start)
	if err != nil {
		stats.errors.Inc()
		metrics.RecordRerank(string(p.alg), len(req.Items), false, elapsed, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	out := &Outcome{
		Algorithm:    string(p.alg),
		Preset:       p.preset,
		Distribution: p.dist.Fractions(),
		Items:        make([]RankedItem, res.Len()),
		Requested:    res.Requested,
		Returned:     res.Len(),
		Short:        res.Short,
		Iterations:   res.Iterations,
		GroupCounts:  make([]int, p.dist.Groups()),
	}
	for i := range res.Items {
		out.Items[i] = RankedItem{
			Item:          res.Items[i],
			Rank:          i,
			InputPosition: res.Positions[i],
			Stamp:         res.Stamps[i],
		}
		if g := res.Groups[i]; p.dist.Contains(g) {
			out.GroupCounts[g]++
		}
	}

	violations := rerank.CheckFloors(res.Groups, p.dist, rerank.Supply(ranking.Groups, p.dist.Groups()))
	out.FloorSatisfied = len(violations) == 0
	if e.cfg.AuditFloors {
		out.Violations = violations
	}

	if p.measure {
		if err := e.measure(ctx, out, req, p); err != nil {
			stats.errors.Inc()
			return nil, err
		}
	}

	out.Duration = time.Since(start)
	stats.record(len(req.Items), out.Returned, out.Short)
	metrics.RecordRerank(string(p.alg), len(req.Items), out.Short, elapsed, nil)
	metrics.RecordFloorViolations(string(p.alg), len(violations))

	e.persist(ctx, req, p, out, len(violations))

	if e.cache != nil && !req.NoCache {
		if data, err := json.Marshal(out); err == nil {
			_ = e.cache.Set(ctx, p.key, data)
		}
	}

	logging.Ctx(ctx).Debug().
		Str("run_id", out.RunID).
		Str("algorithm", out.Algorithm).
		Int("items", len(req.Items)).
		Int("k", p.k).
		Int("returned", out.Returned).
		Bool("short", out.Short).
		Bool("floor_satisfied", out.FloorSatisfied).
		Dur("duration", out.Duration).
		Msg("Rerank complete")

	return out, nil
}

// measure evaluates exposure on the input prefix, in the order the reranker
// received it, and on the output, both of the output's length.
func (e *Engine) measure(ctx context.Context, out *Outcome, req Request, p *plan) error {
	order := make([]int, out.Returned)
	for i := range order {
		order[i] = i
	}

	after := make([]int, out.Returned)
	for i, it := range out.Items {
		after[i] = it.InputPosition
	}

	before, err := e.evaluateAt(ctx, req.Items, order, p)
	if err != nil {
		return err
	}
	afterReport, err := e.evaluateAt(ctx, req.Items, after, p)
	if err != nil {
		return err
	}
	out.ExposureBefore = before
	out.ExposureAfter = afterReport
	return nil
}

// evaluateAt evaluates the configured metric over items[positions...].
// An undefined metric (zero denominators) yields a nil report.
func (e *Engine) evaluateAt(ctx context.Context, items []Item, positions []int, p *plan) (*exposure.Report, error) {
	if len(positions) == 0 {
		return nil, nil
	}

	in := exposure.Input{Groups: make([]rerank.GroupID, len(positions))}
	withRelevance := p.metric != exposure.MetricEXP
	withCTR := p.metric == exposure.MetricEXPRU
	if withRelevance {
		in.Relevance = make([]float64, len(positions))
	}
	if withCTR {
		in.CTR = make([]float64, len(positions))
	}
	for i, pos := range positions {
		it := items[pos]
		in.Groups[i] = rerank.GroupID(it.Group)
		if withRelevance {
			in.Relevance[i] = *it.Relevance
		}
		if withCTR {
			in.CTR[i] = *it.CTR
		}
	}

	report, err := exposure.Evaluate(p.metric, in, p.reducer)
	metrics.RecordExposure(string(p.metric), p.reducer.String(), err)
	switch {
	case err == nil:
		return report, nil
	case errors.Is(err, exposure.ErrUndefined):
		logging.Ctx(ctx).Debug().Err(err).Str("metric", string(p.metric)).Msg("Exposure undefined for ranking")
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
}

func (e *Engine) persist(ctx context.Context, req Request, p *plan, out *Outcome, violations int) {
	id, err := uuid.NewV7()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to generate run id")
		return
	}
	out.RunID = id.String()

	if e.store == nil && e.analytics == nil {
		return
	}

	source := req.Source
	if source == "" {
		source = "http"
	}
	run := &store.Run{
		ID:             out.RunID,
		CreatedAt:      time.Now().UTC(),
		RequestID:      req.RequestID,
		Source:         source,
		Algorithm:      out.Algorithm,
		Preset:         out.Preset,
		Distribution:   out.Distribution,
		K:              p.k,
		InputSize:      len(req.Items),
		Returned:       out.Returned,
		Short:          out.Short,
		Iterations:     out.Iterations,
		GroupCounts:    out.GroupCounts,
		FloorSatisfied: out.FloorSatisfied,
		Violations:     violations,
		DurationMicros: out.Duration.Microseconds(),
	}
	if p.measure {
		run.ExposureMetric = string(p.metric)
		if out.ExposureBefore != nil {
			v := out.ExposureBefore.Score
			run.ExposureBefore = &v
		}
		if out.ExposureAfter != nil {
			v := out.ExposureAfter.Score
			run.ExposureAfter = &v
		}
	}

	// Persistence failures never fail the request.
	if e.store != nil {
		if err := e.store.Save(ctx, run); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("Failed to save run")
		}
	}
	if e.analytics != nil {
		if err := e.analytics.Record(ctx, run); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record run analytics")
		}
	}
}
