// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/metrics"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{"generated when absent", "", false},
		{"client id reused", "req-123", true},
		{"oversized id replaced", strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ctxID, corrID string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = logging.RequestIDFromContext(r.Context())
				corrID = logging.CorrelationIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("response is missing X-Request-ID")
			}
			if got != ctxID {
				t.Errorf("header %q != context %q", got, ctxID)
			}
			if (got == tt.incoming) != tt.wantSame {
				t.Errorf("reused = %v, want %v", got == tt.incoming, tt.wantSame)
			}
			if corrID == "" {
				t.Error("correlation ID not set")
			}
		})
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/test/metrics/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Get("/test/metrics/implicit", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/test/metrics/{id}", "418")
	before := testutil.ToFloat64(counter)
	implicit := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/test/metrics/implicit", "200")
	beforeImplicit := testutil.ToFloat64(implicit)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test/metrics/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test/metrics/implicit", nil))

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("pattern counter delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(implicit) - beforeImplicit; got != 1 {
		t.Errorf("implicit 200 counter delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != 0 {
		t.Errorf("active requests = %v, want 0", got)
	}
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		limit   int64
		body    string
		wantErr bool
	}{
		{"under limit", 10, "hello", false},
		{"at limit", 5, "hello", false},
		{"over limit", 4, "hello", true},
		{"disabled", 0, strings.Repeat("x", 1<<12), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var readErr error
			h := BodyLimit(tt.limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)))

			if tt.wantErr {
				var mbe *http.MaxBytesError
				if !errors.As(readErr, &mbe) {
					t.Errorf("err = %v, want *http.MaxBytesError", readErr)
				}
				return
			}
			if readErr != nil {
				t.Errorf("unexpected error: %v", readErr)
			}
		})
	}
}

func TestPerformanceMonitor_RingBuffer(t *testing.T) {
	t.Parallel()

	pm := NewPerformanceMonitor(3, time.Hour)
	for i := 1; i <= 5; i++ {
		pm.Record(RequestSample{Route: "/r", Method: http.MethodGet, Duration: time.Duration(i) * time.Millisecond})
	}

	if pm.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", pm.Len())
	}
	recent := pm.Recent(10)
	want := []time.Duration{3 * time.Millisecond, 4 * time.Millisecond, 5 * time.Millisecond}
	for i, s := range recent {
		if s.Duration != want[i] {
			t.Errorf("Recent()[%d] = %v, want %v", i, s.Duration, want[i])
		}
	}
	if got := pm.Recent(1); len(got) != 1 || got[0].Duration != 5*time.Millisecond {
		t.Errorf("Recent(1) = %+v", got)
	}
}

func TestPerformanceMonitor_Stats(t *testing.T) {
	t.Parallel()

	pm := NewPerformanceMonitor(100, time.Hour)
	for i := 1; i <= 4; i++ {
		pm.Record(RequestSample{Route: "/a", Method: http.MethodPost, Duration: time.Duration(i*100) * time.Microsecond, StatusCode: 200})
	}
	pm.Record(RequestSample{Route: "/b", Method: http.MethodGet, Duration: time.Millisecond, StatusCode: 500})

	stats := pm.Stats()
	if len(stats) != 2 {
		t.Fatalf("got %d endpoints, want 2", len(stats))
	}

	a := stats[0]
	if a.Endpoint != "POST /a" || a.RequestCount != 4 {
		t.Errorf("first = %+v, want POST /a with 4 requests", a)
	}
	if a.MinMicros != 100 || a.MaxMicros != 400 || a.AvgMicros != 250 {
		t.Errorf("min/max/avg = %d/%d/%v", a.MinMicros, a.MaxMicros, a.AvgMicros)
	}
	if a.P50Micros != 200 {
		t.Errorf("p50 = %d, want 200", a.P50Micros)
	}
	if stats[1].ErrorCount != 1 {
		t.Errorf("GET /b errors = %d, want 1", stats[1].ErrorCount)
	}
}

func TestPerformanceMonitor_Middleware(t *testing.T) {
	t.Parallel()

	pm := NewPerformanceMonitor(10, 0)
	r := chi.NewRouter()
	r.Use(pm.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))

	recent := pm.Recent(1)
	if len(recent) != 1 {
		t.Fatal("no sample recorded")
	}
	if recent[0].Route != "/items/{id}" || recent[0].StatusCode != http.StatusNotFound {
		t.Errorf("sample = %+v", recent[0])
	}
}
