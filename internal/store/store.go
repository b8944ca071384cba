// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package store persists rerank run records in BadgerDB.
//
// Runs are keyed by a UUIDv7 so that key order is creation order and List
// can walk newest-first with a reverse iterator. Records carry the Badger
// TTL configured by Retention; expired runs disappear without a sweep.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/metrics"
)

const runKeyPrefix = "run:"

// Errors
var (
	ErrNotFound = errors.New("run not found")
	ErrClosed   = errors.New("store is closed")
	ErrNilRun   = errors.New("run is nil")
)

// Run is the stored summary of one rerank call. Items themselves are not
// stored, only what is needed to audit the call.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	RequestID string    `json:"request_id,omitempty"`

	// Source is "http" or "event".
	Source string `json:"source"`

	Algorithm    string    `json:"algorithm"`
	Preset       string    `json:"preset,omitempty"`
	Distribution []float64 `json:"distribution"`
	K            int       `json:"k"`
	InputSize    int       `json:"input_size"`
	Returned     int       `json:"returned"`
	Short        bool      `json:"short"`
	Iterations   int       `json:"iterations"`

	// GroupCounts is the number of returned items per group.
	GroupCounts []int `json:"group_counts"`

	FloorSatisfied bool `json:"floor_satisfied"`
	Violations     int  `json:"violations"`

	// Exposure scores of the input and output rankings, when requested.
	ExposureMetric string   `json:"exposure_metric,omitempty"`
	ExposureBefore *float64 `json:"exposure_before,omitempty"`
	ExposureAfter  *float64 `json:"exposure_after,omitempty"`

	DurationMicros int64 `json:"duration_us"`
}

// Config configures the store.
type Config struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool

	// Retention is the TTL of each run. Zero keeps runs forever.
	Retention time.Duration

	// GCInterval is the period of Serve's value log GC loop.
	GCInterval time.Duration

	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64
}

// Store is a Badger-backed run history.
type Store struct {
	db  *badger.DB
	cfg Config

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store path is required")
	}
	if cfg.GCRatio <= 0 || cfg.GCRatio >= 1 {
		cfg.GCRatio = 0.5
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = 10 * time.Minute
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Dur("retention", cfg.Retention).
		Msg("Run store opened")

	return &Store{db: db, cfg: cfg}, nil
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Save stores run, assigning ID and CreatedAt when empty.
func (s *Store) Save(ctx context.Context, run *Run) (err error) {
	defer func() { metrics.RecordStoreOperation("save", err) }()

	if run == nil {
		return ErrNilRun
	}
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate run id: %w", err)
		}
		run.ID = id.String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(runKeyPrefix+run.ID), data)
		if s.cfg.Retention > 0 {
			e = e.WithTTL(s.cfg.Retention)
		}
		return txn.SetEntry(e)
	})
}

// Get returns the run with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (run *Run, err error) {
	defer func() {
		if errors.Is(err, ErrNotFound) {
			metrics.RecordStoreOperation("get", nil)
			return
		}
		metrics.RecordStoreOperation("get", err)
	}()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run = &Run{}
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, run)
		})
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of runs returned. Zero means 50.
	Limit int

	// Algorithm keeps only runs of this algorithm when set.
	Algorithm string

	// Before returns runs strictly older than the run with this ID.
	Before string
}

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 50

// List returns runs newest-first.
func (s *Store) List(ctx context.Context, opts ListOptions) (runs []*Run, err error) {
	defer func() { metrics.RecordStoreOperation("list", err) }()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	prefix := []byte(runKeyPrefix)
	// 0xFF sorts after every UUID character
	seek := append([]byte(runKeyPrefix), 0xFF)
	if opts.Before != "" {
		seek = []byte(runKeyPrefix + opts.Before)
	}

	err = s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Reverse = true
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			if opts.Before != "" && string(item.Key()) == runKeyPrefix+opts.Before {
				continue
			}

			var run Run
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				return fmt.Errorf("decode run %s: %w", item.Key(), err)
			}
			if opts.Algorithm != "" && !strings.EqualFold(run.Algorithm, opts.Algorithm) {
				continue
			}

			runs = append(runs, &run)
			if len(runs) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// Count returns the number of stored runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// Ping reports whether the store is usable.
func (s *Store) Ping(context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// RunGC runs value log GC until there is nothing left to rewrite.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.cfg.InMemory {
		return nil
	}

	for {
		err := s.db.RunValueLogGC(s.cfg.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Serve runs RunGC every GCInterval until ctx is done. It satisfies
// suture.Service.
func (s *Store) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				logging.Warn().Err(err).Msg("Run store GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Store) String() string {
	return "run-store-gc"
}

// Close closes the database. Further calls return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Run store closed")
	return nil
}
