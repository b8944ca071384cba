// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

//go:build !nats

package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/fairrank/internal/config"
	"github.com/tomtom215/fairrank/internal/eventprocessor"
	"github.com/tomtom215/fairrank/internal/store"
)

func testAppConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second},
		Rerank: config.RerankConfig{
			DefaultAlgorithm: "detconsort",
			MaxItems:         100,
			MaxGroups:        8,
			SumTolerance:     1e-6,
			Lambda:           0.7,
			Window:           1,
			Timeout:          time.Second,
		},
		Exposure: config.ExposureConfig{
			DefaultMetric:  "EXP",
			DefaultReducer: "MinMaxRatio",
			MaxItems:       100,
		},
		Security: config.SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			MaxBodyBytes:    1 << 20,
		},
	}
}

func TestNewApp_StartupErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{
			name:   "empty config",
			modify: func(c *config.Config) { *c = config.Config{} },
		},
		{
			name:   "missing presets file",
			modify: func(c *config.Config) { c.Rerank.PresetsPath = filepath.Join(t.TempDir(), "missing.yaml") },
		},
		{
			name:   "store without path",
			modify: func(c *config.Config) { c.Store.Enabled = true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAppConfig(t)
			tt.modify(cfg)

			a, err := newApp(context.Background(), cfg)
			if err == nil {
				t.Fatal("expected startup error")
			}
			if a != nil {
				t.Errorf("app = %v, want nil on error", a)
			}
		})
	}
}

func TestNewApp_ReleasesResourcesOnFailure(t *testing.T) {
	dir := t.TempDir()

	cfg := testAppConfig(t)
	cfg.Store = config.StoreConfig{Enabled: true, Path: dir}
	cfg.NATS.Enabled = true

	_, err := newApp(context.Background(), cfg)
	if !errors.Is(err, eventprocessor.ErrNATSNotEnabled) {
		t.Fatalf("err = %v, want ErrNATSNotEnabled", err)
	}

	// the directory lock is held until the failed app closes its store
	s, err := store.Open(store.Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNewApp_Success(t *testing.T) {
	cfg := testAppConfig(t)
	cfg.Store = config.StoreConfig{Enabled: true, InMemory: true}
	cfg.Cache = config.CacheConfig{Enabled: true, Size: 16, TTL: time.Minute}

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if a.store == nil || a.memory == nil || a.server == nil {
		t.Fatalf("app not fully initialized: %+v", a)
	}
	if a.processor != nil {
		t.Error("processor should be nil when NATS is disabled")
	}

	// Close is idempotent
	a.Close()
}
