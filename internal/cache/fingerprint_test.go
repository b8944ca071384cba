// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package cache

import (
	"math"
	"testing"
)

func TestFingerprint_Deterministic(t *testing.T) {
	build := func() string {
		return NewFingerprint().
			String("detconsort").
			Int(10).
			Ints([]int{0, 1, 0}).
			Floats([]float64{3, 2, 1}).
			Strings([]string{"a", "b"}).
			Float(0.7).
			Key()
	}

	a, b := build(), build()
	if a != b {
		t.Errorf("same fields produced %q and %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("Key() length = %d, want 16", len(a))
	}
}

func TestFingerprint_FieldBoundaries(t *testing.T) {
	tests := []struct {
		name string
		a, b *Fingerprint
	}{
		{
			name: "string split",
			a:    NewFingerprint().String("ab").String("c"),
			b:    NewFingerprint().String("a").String("bc"),
		},
		{
			name: "strings split",
			a:    NewFingerprint().Strings([]string{"ab", "c"}),
			b:    NewFingerprint().Strings([]string{"a", "bc"}),
		},
		{
			name: "int vs float",
			a:    NewFingerprint().Int(1),
			b:    NewFingerprint().Float(1),
		},
		{
			name: "slice length",
			a:    NewFingerprint().Ints([]int{1, 2}).Ints(nil),
			b:    NewFingerprint().Ints([]int{1}).Ints([]int{2}),
		},
		{
			name: "order",
			a:    NewFingerprint().Floats([]float64{1, 2}),
			b:    NewFingerprint().Floats([]float64{2, 1}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.a.Sum() == tt.b.Sum() {
				t.Errorf("fingerprints collide: %x", tt.a.Sum())
			}
		})
	}
}

func TestFingerprint_NegativeZero(t *testing.T) {
	a := NewFingerprint().Float(0).Sum()
	b := NewFingerprint().Float(math.Copysign(0, -1)).Sum()
	if a != b {
		t.Error("0 and -0 should hash the same")
	}
}
