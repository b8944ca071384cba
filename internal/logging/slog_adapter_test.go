// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(zerolog.New(&buf)))

	logger.Warn("breaker open",
		"service", "results",
		"failures", 5,
		"ratio", 0.5,
		"open", true,
		"wait", 2*time.Second,
		"err", errors.New("boom"),
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"message":"breaker open"`,
		`"service":"results"`,
		`"failures":5`,
		`"ratio":0.5`,
		`"open":true`,
		`"err":"boom"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogHandler_GroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogHandlerWithLogger(zerolog.New(&buf))
	logger := slog.New(base.WithAttrs([]slog.Attr{slog.String("layer", "api")}).WithGroup("http").WithGroup("server"))

	logger.Info("started", "port", 8080, slog.Group("tls", slog.Bool("enabled", false)))

	out := buf.String()
	for _, want := range []string{
		`"http.server.layer":"api"`,
		`"http.server.port":8080`,
		`"http.server.tls.enabled":false`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}

	if base.WithGroup("") != base {
		t.Error("WithGroup(\"\") should return the receiver")
	}
}

func TestSlogHandler_Enabled(t *testing.T) {
	h := NewSlogHandlerWithLogger(zerolog.New(&bytes.Buffer{}).Level(zerolog.WarnLevel))

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Enabled(info) = true for a warn logger")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Enabled(error) = false for a warn logger")
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
