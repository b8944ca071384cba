// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

//go:build integration

// Package testinfra starts Docker containers for integration tests with
// testcontainers-go. Tests using it are built with the integration tag:
//
//	go test -tags integration ./internal/cache/...
//
// Example:
//
//	func TestRedisTier(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    redis, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redis)
//
//	    tier, err := cache.NewRedis(ctx, cache.RedisConfig{Addr: redis.Addr})
//	    ...
//	}
package testinfra
