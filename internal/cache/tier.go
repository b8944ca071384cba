// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package cache

import (
	"context"
	"time"

	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/metrics"
)

// Tier is one level of the result cache. Values are opaque encoded bytes.
type Tier interface {
	// Name labels the tier in metrics and logs.
	Name() string

	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for the tier's TTL.
	Set(ctx context.Context, key string, value []byte) error
}

// Memory is an in-process Tier backed by an LRU.
type Memory struct {
	lru *LRU[[]byte]
}

// NewMemory creates a memory tier.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	return &Memory{lru: NewLRU[[]byte](capacity, ttl)}
}

// Name implements Tier.
func (m *Memory) Name() string { return "memory" }

// Get implements Tier.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

// Set implements Tier.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

// CleanupExpired drops expired entries and returns how many were removed.
func (m *Memory) CleanupExpired() int {
	return m.lru.CleanupExpired()
}

// Stats returns the LRU counters.
func (m *Memory) Stats() Stats {
	return m.lru.Stats()
}

// Tiered reads through its tiers in order and back-fills faster tiers on a
// hit in a slower one. Tier errors are logged and treated as misses so a
// failing shared cache never fails a request.
type Tiered struct {
	tiers []Tier
}

// NewTiered combines tiers, fastest first.
func NewTiered(tiers ...Tier) *Tiered {
	return &Tiered{tiers: tiers}
}

// Get implements Tier.
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, tier := range t.tiers {
		v, ok, err := tier.Get(ctx, key)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("tier", tier.Name()).Msg("cache get failed")
			ok = false
		}
		metrics.RecordCacheLookup(tier.Name(), ok)
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			if err := t.tiers[j].Set(ctx, key, v); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("tier", t.tiers[j].Name()).Msg("cache backfill failed")
			}
		}
		return v, true, nil
	}
	return nil, false, nil
}

// Set implements Tier.
func (t *Tiered) Set(ctx context.Context, key string, value []byte) error {
	for _, tier := range t.tiers {
		if err := tier.Set(ctx, key, value); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("tier", tier.Name()).Msg("cache set failed")
		}
	}
	return nil
}

// Name implements Tier.
func (t *Tiered) Name() string { return "tiered" }

var (
	_ Tier = (*Memory)(nil)
	_ Tier = (*Tiered)(nil)
	_ Tier = (*Redis)(nil)
)
