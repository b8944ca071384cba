// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package services

import (
	"context"
	"time"

	"github.com/tomtom215/fairrank/internal/logging"
)

// Sweeper drops expired entries. Implemented by *cache.Memory.
type Sweeper interface {
	CleanupExpired() int
}

// JanitorService sweeps a cache on a fixed interval so expired entries do
// not hold memory until they are evicted.
type JanitorService struct {
	name     string
	sweeper  Sweeper
	interval time.Duration
}

// NewJanitorService creates a janitor. interval <= 0 means one minute.
func NewJanitorService(name string, sweeper Sweeper, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorService{name: name, sweeper: sweeper, interval: interval}
}

// Serve implements suture.Service.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.sweeper.CleanupExpired(); n > 0 {
				logging.Debug().Str("cache", j.name).Int("removed", n).Msg("Swept expired cache entries")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (j *JanitorService) String() string {
	return j.name + "-janitor"
}
