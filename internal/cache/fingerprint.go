// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

package cache

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint builds a 64-bit xxhash over a sequence of typed fields.
// Each field is length- or tag-prefixed so that ("ab","c") and ("a","bc")
// hash differently.
//
//	key := cache.NewFingerprint().
//	    String("detconsort").
//	    Int(k).
//	    Floats(scores).
//	    Key()
type Fingerprint struct {
	d   *xxhash.Digest
	buf [9]byte
}

// NewFingerprint returns an empty fingerprint.
func NewFingerprint() *Fingerprint {
	return &Fingerprint{d: xxhash.New()}
}

const (
	tagString byte = iota + 1
	tagInt
	tagFloat
	tagInts
	tagFloats
	tagStrings
)

func (f *Fingerprint) tag(tag byte, n uint64) {
	f.buf[0] = tag
	binary.LittleEndian.PutUint64(f.buf[1:], n)
	_, _ = f.d.Write(f.buf[:])
}

// String adds a string field.
func (f *Fingerprint) String(s string) *Fingerprint {
	f.tag(tagString, uint64(len(s)))
	_, _ = f.d.WriteString(s)
	return f
}

// Int adds an integer field.
func (f *Fingerprint) Int(v int) *Fingerprint {
	f.tag(tagInt, uint64(int64(v)))
	return f
}

// Float adds a float field. Negative zero hashes like zero.
func (f *Fingerprint) Float(v float64) *Fingerprint {
	f.tag(tagFloat, floatBits(v))
	return f
}

// Ints adds an integer slice field.
func (f *Fingerprint) Ints(vs []int) *Fingerprint {
	f.tag(tagInts, uint64(len(vs)))
	var b [8]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint64(b[:], uint64(int64(v)))
		_, _ = f.d.Write(b[:])
	}
	return f
}

// Floats adds a float slice field.
func (f *Fingerprint) Floats(vs []float64) *Fingerprint {
	f.tag(tagFloats, uint64(len(vs)))
	var b [8]byte
	for _, v := range vs {
		binary.LittleEndian.PutUint64(b[:], floatBits(v))
		_, _ = f.d.Write(b[:])
	}
	return f
}

// Strings adds a string slice field.
func (f *Fingerprint) Strings(vs []string) *Fingerprint {
	f.tag(tagStrings, uint64(len(vs)))
	for _, s := range vs {
		f.String(s)
	}
	return f
}

// Sum returns the 64-bit hash of the fields added so far.
func (f *Fingerprint) Sum() uint64 {
	return f.d.Sum64()
}

// Key returns the hash as a 16-character hex string.
func (f *Fingerprint) Key() string {
	return fmt.Sprintf("%016x", f.Sum())
}

func floatBits(v float64) uint64 {
	if v == 0 {
		return 0
	}
	return math.Float64bits(v)
}
