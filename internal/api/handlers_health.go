// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/fairrank/internal/logging"
)

// readinessTimeout bounds each dependency ping.
const readinessTimeout = 2 * time.Second

// DependencyStatus is the readiness result of one dependency.
type DependencyStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]interface{}{
		"alive":   true,
		"version": h.version,
		"uptime":  time.Since(h.startTime).Seconds(),
	}, Metadata{})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 when any configured dependency fails its ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	deps := h.checkDependencies(r.Context())

	ready := true
	for _, d := range deps {
		if !d.Healthy {
			ready = false
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	respondData(w, r, status, map[string]interface{}{
		"ready_to_serve": ready,
		"dependencies":   deps,
		"uptime":         time.Since(h.startTime).Seconds(),
	}, Metadata{})
}

func (h *Handler) checkDependencies(ctx context.Context) []DependencyStatus {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make([]DependencyStatus, 0, len(names))
	for _, name := range names {
		pingCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := h.checks[name].Ping(pingCtx)
		cancel()

		d := DependencyStatus{Name: name, Healthy: err == nil}
		if err != nil {
			d.Error = err.Error()
			logging.Ctx(ctx).Warn().Err(err).Str("dependency", name).Msg("Readiness check failed")
		}
		deps = append(deps, d)
	}
	return deps
}
