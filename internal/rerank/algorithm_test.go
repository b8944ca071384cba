// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package rerank

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{"detconsort", AlgorithmDetConSort, false},
		{"DetConSort", AlgorithmDetConSort, false},
		{" calibrated ", AlgorithmCalibrated, false},
		{"MMR", AlgorithmMMR, false},
		{"", "", true},
		{"fa*ir", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownAlgorithm) {
				t.Errorf("error = %v, want %v", err, ErrUnknownAlgorithm)
			}
			if got != tt.want {
				t.Errorf("ParseAlgorithm(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	for _, alg := range Algorithms() {
		t.Run(string(alg), func(t *testing.T) {
			rr, err := New[string](alg, DefaultOptions())
			if err != nil {
				t.Fatalf("New(%q) error = %v", alg, err)
			}
			if rr.Name() != string(alg) {
				t.Errorf("Name() = %q, want %q", rr.Name(), alg)
			}
		})
	}

	if _, err := New[string]("unknown", DefaultOptions()); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("New(unknown) error = %v, want %v", err, ErrUnknownAlgorithm)
	}
}

func TestClampLambda(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
		want   float64
	}{
		{"normal value", 0.7, 0.7},
		{"zero value", 0, 0},
		{"one value", 1, 1},
		{"negative clamped to zero", -0.5, 0},
		{"above one clamped to one", 1.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewCalibrated[int](tt.lambda).lambda; got != tt.want {
				t.Errorf("calibrated lambda = %v, want %v", got, tt.want)
			}
			if got := NewMMR[int](tt.lambda, 1).lambda; got != tt.want {
				t.Errorf("mmr lambda = %v, want %v", got, tt.want)
			}
		})
	}
}

func twoGroupRanking() Ranking[string] {
	return Ranking[string]{
		Items:  []string{"A", "B", "C", "D"},
		Groups: []GroupID{0, 0, 1, 1},
		Scores: []float64{4, 3, 2, 1},
	}
}

func TestCalibratedReranker_Rerank(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
		k      int
		want   []string
	}{
		{"pure calibration alternates groups", 0, 4, []string{"A", "C", "B", "D"}},
		{"pure relevance keeps score order", 1, 4, []string{"A", "B", "C", "D"}},
		{"truncated to k", 0, 2, []string{"A", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := NewCalibrated[string](tt.lambda)
			res, err := rr.Rerank(context.Background(), twoGroupRanking(), mustDistribution(t, 0.5, 0.5), tt.k)
			if err != nil {
				t.Fatalf("Rerank() error = %v", err)
			}
			if !reflect.DeepEqual(res.Items, tt.want) {
				t.Errorf("Items = %v, want %v", res.Items, tt.want)
			}
			if res.Short {
				t.Error("Short = true, want false")
			}
		})
	}
}

func TestMMRReranker_Rerank(t *testing.T) {
	tests := []struct {
		name   string
		lambda float64
		window int
		k      int
		want   []string
	}{
		{"balanced interleaves groups", 0.5, 1, 4, []string{"A", "C", "B", "D"}},
		{"pure relevance keeps score order", 1, 1, 4, []string{"A", "B", "C", "D"}},
		{"truncated to k", 0.5, 1, 2, []string{"A", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := NewMMR[string](tt.lambda, tt.window)
			res, err := rr.Rerank(context.Background(), twoGroupRanking(), mustDistribution(t, 0.5, 0.5), tt.k)
			if err != nil {
				t.Fatalf("Rerank() error = %v", err)
			}
			if !reflect.DeepEqual(res.Items, tt.want) {
				t.Errorf("Items = %v, want %v", res.Items, tt.want)
			}
		})
	}
}

func TestGreedyRerankers_ShortAndErrors(t *testing.T) {
	rerankers := []Reranker[string]{
		NewCalibrated[string](0.7),
		NewMMR[string](0.7, 2),
	}
	dist := mustDistribution(t, 0.5, 0.5)

	for _, rr := range rerankers {
		t.Run(rr.Name(), func(t *testing.T) {
			res, err := rr.Rerank(context.Background(), twoGroupRanking(), dist, 10)
			if err != nil {
				t.Fatalf("Rerank() error = %v", err)
			}
			if res.Len() != 4 || !res.Short {
				t.Errorf("Len() = %d, Short = %v, want 4, true", res.Len(), res.Short)
			}

			bad := twoGroupRanking()
			bad.Groups[3] = 7
			if _, err := rr.Rerank(context.Background(), bad, dist, 2); !errors.Is(err, ErrGroupOutOfRange) {
				t.Errorf("Rerank() error = %v, want %v", err, ErrGroupOutOfRange)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if _, err := rr.Rerank(ctx, twoGroupRanking(), dist, 2); !errors.Is(err, context.Canceled) {
				t.Errorf("Rerank() error = %v, want %v", err, context.Canceled)
			}
		})
	}
}
