// FairRank - Fair Reranking Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fairrank

// Package analytics keeps a DuckDB table of run summaries and answers
// aggregate questions about them, such as the share of short results and
// the latency distribution per algorithm.
package analytics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/fairrank/internal/logging"
	"github.com/tomtom215/fairrank/internal/store"
)

// Config configures the analytics database.
type Config struct {
	// Path is the database file. Empty opens an in-memory database.
	Path      string
	MaxMemory string
	Threads   int
}

// DB wraps the DuckDB connection.
type DB struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              VARCHAR PRIMARY KEY,
	created_at      TIMESTAMP NOT NULL,
	source          VARCHAR NOT NULL,
	algorithm       VARCHAR NOT NULL,
	preset          VARCHAR,
	k               INTEGER NOT NULL,
	input_size      INTEGER NOT NULL,
	returned        INTEGER NOT NULL,
	short           BOOLEAN NOT NULL,
	floor_satisfied BOOLEAN NOT NULL,
	violations      INTEGER NOT NULL,
	exposure_metric VARCHAR,
	exposure_before DOUBLE,
	exposure_after  DOUBLE,
	duration_us     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_algorithm ON runs (algorithm);
`

// New opens the database and creates the schema.
func New(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create analytics directory %s: %w", dir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create analytics schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("Analytics database opened")
	return &DB{conn: conn}, nil
}

func connString(cfg Config) string {
	params := "autoinstall_known_extensions=false&autoload_known_extensions=false"
	if cfg.MaxMemory != "" {
		params += "&max_memory=" + cfg.MaxMemory
	}
	if cfg.Threads > 0 {
		params += fmt.Sprintf("&threads=%d", cfg.Threads)
	}
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	return path + "?" + params
}

// Record inserts one run. Re-recording the same run ID is a no-op.
func (db *DB) Record(ctx context.Context, run *store.Run) error {
	if run == nil || run.ID == "" {
		return errors.New("run with an id is required")
	}

	var preset, metric sql.NullString
	if run.Preset != "" {
		preset = sql.NullString{String: run.Preset, Valid: true}
	}
	if run.ExposureMetric != "" {
		metric = sql.NullString{String: run.ExposureMetric, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, source, algorithm, preset, k, input_size, returned,
			short, floor_satisfied, violations, exposure_metric, exposure_before, exposure_after, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		run.ID, run.CreatedAt.UTC(), run.Source, run.Algorithm, preset, run.K, run.InputSize, run.Returned,
		run.Short, run.FloorSatisfied, run.Violations, metric,
		nullFloat(run.ExposureBefore), nullFloat(run.ExposureAfter), run.DurationMicros,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// AlgorithmSummary aggregates the runs of one algorithm.
type AlgorithmSummary struct {
	Algorithm          string   `json:"algorithm"`
	Runs               int64    `json:"runs"`
	ShortRuns          int64    `json:"short_runs"`
	ShortRate          float64  `json:"short_rate"`
	FloorViolationRuns int64    `json:"floor_violation_runs"`
	AvgInputSize       float64  `json:"avg_input_size"`
	AvgDurationMicros  float64  `json:"avg_duration_us"`
	P95DurationMicros  float64  `json:"p95_duration_us"`
	AvgExposureBefore  *float64 `json:"avg_exposure_before,omitempty"`
	AvgExposureAfter   *float64 `json:"avg_exposure_after,omitempty"`
}

// Summary aggregates runs created at or after since, per algorithm, ordered
// by algorithm name. A zero since covers all runs.
func (db *DB) Summary(ctx context.Context, since time.Time) ([]AlgorithmSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT
			algorithm,
			count(*) AS runs,
			count(*) FILTER (WHERE short) AS short_runs,
			count(*) FILTER (WHERE NOT floor_satisfied) AS violation_runs,
			avg(input_size) AS avg_input,
			avg(duration_us) AS avg_duration,
			quantile_cont(duration_us, 0.95) AS p95_duration,
			avg(exposure_before) AS avg_before,
			avg(exposure_after) AS avg_after
		FROM runs
		WHERE created_at >= ?
		GROUP BY algorithm
		ORDER BY algorithm`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []AlgorithmSummary
	for rows.Next() {
		var (
			s             AlgorithmSummary
			before, after sql.NullFloat64
		)
		if err := rows.Scan(&s.Algorithm, &s.Runs, &s.ShortRuns, &s.FloorViolationRuns,
			&s.AvgInputSize, &s.AvgDurationMicros, &s.P95DurationMicros, &before, &after); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if s.Runs > 0 {
			s.ShortRate = float64(s.ShortRuns) / float64(s.Runs)
		}
		if before.Valid {
			v := before.Float64
			s.AvgExposureBefore = &v
		}
		if after.Valid {
			v := after.Float64
			s.AvgExposureAfter = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Ping checks the connection for readiness probes.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database.
func (db *DB) Close() error {
	return db.conn.Close()
}
