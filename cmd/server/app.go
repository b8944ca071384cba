// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/fairrank/internal/analytics"
	"github.com/tomtom215/fairrank/internal/api"
	"github.com/tomtom215/fairrank/internal/cache"
	"github.com/tomtom215/fairrank/internal/config"
	"github.com/tomtom215/fairrank/internal/engine"
	"github.com/tomtom215/fairrank/internal/eventprocessor"
	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/middleware"
	"github.com/tomtom215/fairrank/internal/store"
	"github.com/tomtom215/fairrank/internal/supervisor"
	"github.com/tomtom215/fairrank/internal/supervisor/services"
)

// app holds the initialized components and the resources to release.
type app struct {
	cfg *config.Config

	store     *store.Store
	memory    *cache.Memory
	processor *eventprocessor.Processor
	server    *http.Server

	closers   []io.Closer
	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	engineCfg, err := engine.ConfigFrom(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	presets, err := config.LoadPresets(cfg.Rerank.PresetsPath, cfg.Rerank.SumTolerance)
	if err != nil {
		return nil, err
	}
	logging.Info().Int("presets", presets.Len()).Msg("Presets loaded")

	opts := []engine.Option{engine.WithPresets(presets)}
	handlerOpts := []api.HandlerOption{api.WithVersion(version)}

	if cfg.Store.Enabled {
		s, err := store.Open(store.Config{
			Path:       cfg.Store.Path,
			InMemory:   cfg.Store.InMemory,
			Retention:  cfg.Store.Retention,
			GCInterval: cfg.Store.GCInterval,
		})
		if err != nil {
			return nil, err
		}
		a.store = s
		a.closers = append(a.closers, s)
		opts = append(opts, engine.WithStore(s))
		handlerOpts = append(handlerOpts, api.WithReadinessCheck("store", s))
	}

	if cfg.Analytics.Enabled {
		db, err := analytics.New(ctx, analytics.Config{
			Path:      cfg.Analytics.Path,
			MaxMemory: cfg.Analytics.MaxMemory,
			Threads:   cfg.Analytics.Threads,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		opts = append(opts, engine.WithAnalytics(db))
		handlerOpts = append(handlerOpts, api.WithReadinessCheck("analytics", db))
	}

	if cfg.Cache.Enabled {
		a.memory = cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
		tiers := []cache.Tier{a.memory}
		if cfg.Cache.RedisAddr != "" {
			r, err := cache.NewRedis(ctx, cache.RedisConfig{
				Addr:     cfg.Cache.RedisAddr,
				Password: cfg.Cache.RedisPassword,
				DB:       cfg.Cache.RedisDB,
				Prefix:   cfg.Cache.RedisPrefix,
				TTL:      cfg.Cache.TTL,
			})
			if err != nil {
				return nil, err
			}
			a.closers = append(a.closers, r)
			tiers = append(tiers, r)
			handlerOpts = append(handlerOpts, api.WithReadinessCheck("redis", r))
		}
		opts = append(opts, engine.WithCache(cache.NewTiered(tiers...)))
	}

	eng := engine.New(engineCfg, opts...)

	if cfg.NATS.Enabled {
		if err := a.initEvents(eng); err != nil {
			return nil, err
		}
		handlerOpts = append(handlerOpts, api.WithReadinessCheck("events", a.processor))
	}

	monitor := middleware.NewPerformanceMonitor(0, 0)
	handlerOpts = append(handlerOpts, api.WithMonitor(monitor))

	router := api.NewRouter(
		api.NewHandler(eng, handlerOpts...),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security)),
	)
	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

func (a *app) initEvents(eng *engine.Engine) error {
	logger := watermill.NewSlogLogger(logging.NewSlogLoggerWithComponent("nats"))
	transport, err := eventprocessor.NewTransport(a.cfg.NATS, logger)
	if err != nil {
		return fmt.Errorf("event transport: %w", err)
	}
	a.closers = append(a.closers, transport)

	p, err := eventprocessor.NewProcessor(eventprocessor.ConfigFrom(a.cfg.NATS), transport.Subscriber, transport.Publisher, eng)
	if err != nil {
		return err
	}
	a.processor = p
	logging.Info().
		Str("request_topic", a.cfg.NATS.RequestTopic).
		Bool("embedded", a.cfg.NATS.EmbeddedServer).
		Msg("Event processing enabled")
	return nil
}

// register adds the long-running services to the supervisor tree.
func (a *app) register(tree *supervisor.Tree) {
	if a.store != nil {
		tree.AddDataService(a.store)
	}
	if a.memory != nil {
		tree.AddDataService(services.NewJanitorService("result-cache", a.memory, a.cfg.Cache.TTL))
	}
	if a.processor != nil {
		tree.AddMessagingService(a.processor)
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, a.cfg.Server.ShutdownTimeout))
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i].Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing component")
			}
		}
	})
}
