// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/fairrank/internal/testinfra"
)

func TestRedis_Container(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testinfra.NewRedisContainer(ctx)
	if err != nil {
		t.Fatalf("NewRedisContainer() error = %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, container)

	r, err := NewRedis(ctx, RedisConfig{Addr: container.Addr, Prefix: "fairrank:", TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedis() error = %v", err)
	}
	defer r.Close()

	tiered := NewTiered(NewMemory(8, time.Minute), r)
	if err := tiered.Set(ctx, "run", []byte("outcome")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// A fresh memory tier misses and is back-filled from Redis.
	fresh := NewMemory(8, time.Minute)
	got, ok, err := NewTiered(fresh, r).Get(ctx, "run")
	if err != nil || !ok || string(got) != "outcome" {
		t.Fatalf("Get() = %q, %v, %v", got, ok, err)
	}
	if v, ok, _ := fresh.Get(ctx, "run"); !ok || string(v) != "outcome" {
		t.Errorf("memory tier not back-filled: %q, %v", v, ok)
	}
}
