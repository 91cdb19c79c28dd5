// Package store provides the PostgreSQL persistence layer: the task
// provenance ledger, coverage artifact registry, and the year-sharded
// station surge tables. Repositories accept a DBTX so the same code runs
// against a pool or inside a transaction.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store owns the connection pool and the repositories built on it.
type Store struct {
	Pool      *pgxpool.Pool
	Tasks     *TaskRepository
	Coverages *CoverageRepository
	Stations  *StationRepository
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{
		Pool:      pool,
		Tasks:     NewTaskRepository(pool),
		Coverages: NewCoverageRepository(pool),
		Stations:  NewStationRepository(pool),
	}, nil
}

// Ping reports whether the backing database is reachable. Used by the
// readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// migrations creates the fixed tables. Station shards are created on
// demand by StationRepository.EnsureShard instead.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS task_infos (
		id varchar(8) PRIMARY KEY,
		task_name varchar(100) NOT NULL,
		task_status integer NOT NULL,
		task_type integer NOT NULL,
		timestamp bigint NOT NULL,
		task_result text NOT NULL DEFAULT '',
		gmt_create_time timestamptz NOT NULL DEFAULT now(),
		gmt_modify_time timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS task_jobs (
		id bigserial PRIMARY KEY,
		task_id varchar(8) NOT NULL,
		job_step integer NOT NULL,
		ok boolean NOT NULL DEFAULT true,
		gmt_create_time timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_jobs_task_id ON task_jobs (task_id)`,
	`CREATE TABLE IF NOT EXISTS task_files (
		id bigserial PRIMARY KEY,
		task_id varchar(8) NOT NULL,
		file_name varchar(100) NOT NULL,
		relative_path varchar(50) NOT NULL,
		gmt_create_time timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_files_task_id ON task_files (task_id)`,
	`CREATE TABLE IF NOT EXISTS geo_coverage_file (
		id bigserial PRIMARY KEY,
		is_del smallint NOT NULL DEFAULT 0,
		task_id varchar(8) NOT NULL,
		relative_path varchar(50) NOT NULL,
		file_name varchar(100) NOT NULL,
		file_ext varchar(50) NOT NULL,
		coverage_type integer NOT NULL,
		forecast_ts bigint NOT NULL,
		forecast_dt timestamptz,
		issue_ts bigint NOT NULL,
		issue_dt timestamptz,
		pid bigint NOT NULL DEFAULT -1
	)`,
	`CREATE INDEX IF NOT EXISTS idx_geo_coverage_file_task_id ON geo_coverage_file (task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_geo_coverage_file_issue_ts ON geo_coverage_file (issue_ts)`,
}

// Init applies the fixed-table migrations. Safe to run on every start.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
