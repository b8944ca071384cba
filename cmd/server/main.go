// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package main is the entry point for the FairRank server.
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config.yaml, then environment (Koanf v2)
//  2. Run store: BadgerDB run history (optional)
//  3. Analytics: DuckDB run aggregates (optional)
//  4. Result cache: in-memory LRU with an optional shared Redis tier
//  5. Engine: presets, limits and reranker defaults
//  6. Event processor: NATS JetStream requests (optional, -tags nats)
//  7. HTTP server: REST API, health checks and Prometheus metrics
//
// Long-running components run under a suture supervisor tree. SIGINT and
// SIGTERM cancel the tree, which shuts the HTTP server down gracefully and
// stops the event router before stores are closed.
//
// # Build Tags
//
//	go build ./cmd/server               # HTTP only
//	go build -tags nats ./cmd/server    # with NATS event processing
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/fairrank/internal/config"
	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/supervisor"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Msg("Starting FairRank")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer app.Close()

	tree := supervisor.NewTree(logging.NewSlogLoggerWithComponent("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	app.register(tree)

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree stopped with error")
		app.Close()
		os.Exit(1)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within timeout")
		}
	}
	logging.Info().Msg("FairRank stopped")
}
