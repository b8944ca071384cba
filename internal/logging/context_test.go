// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()

	if RequestIDFromContext(ctx) != "" || CorrelationIDFromContext(ctx) != "" || RunIDFromContext(ctx) != "" {
		t.Fatal("empty context returned an ID")
	}

	ctx = ContextWithRequestID(ctx, "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	ctx = ContextWithRunID(ctx, "run-1")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Errorf("RequestIDFromContext() = %q, want %q", got, "req-1")
	}
	if got := CorrelationIDFromContext(ctx); got != "corr-1" {
		t.Errorf("CorrelationIDFromContext() = %q, want %q", got, "corr-1")
	}
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext() = %q, want %q", got, "run-1")
	}
}

func TestGenerateIDs(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if a == b {
		t.Error("GenerateRequestID() returned duplicates")
	}
	if len(a) != 36 {
		t.Errorf("len(GenerateRequestID()) = %d, want 36", len(a))
	}
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("len(GenerateCorrelationID()) = %d, want 8", got)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRequestID(context.Background(), "req-42")
	ctx = ContextWithRunID(ctx, "run-7")
	Ctx(ctx).Info().Msg("with ids")

	out := buf.String()
	for _, want := range []string{`"request_id":"req-42"`, `"run_id":"run-7"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "correlation_id") {
		t.Errorf("unset correlation id written: %s", out)
	}
}
