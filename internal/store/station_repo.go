package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// shardBaseName is the prefix of the per-year station tables.
const shardBaseName = "station_realdata"

// ShardTableName derives the table holding hourly station records for the
// given issue-cycle year. The year comes from the batch's issue cycle, not
// from each row's own forecast timestamp.
func ShardTableName(year int) string {
	return fmt.Sprintf("%s_%d", shardBaseName, year)
}

// StationRepository writes per-station hourly surge records into
// year-sharded tables, creating shards on demand.
//
// There is deliberately no uniqueness constraint on (station_code,
// issue_ts, forecast_ts): re-ingesting a cycle appends duplicate rows.
// The read side resolves duplicates by task recency.
type StationRepository struct {
	pool *pgxpool.Pool
}

// NewStationRepository creates a StationRepository. It needs the pool
// itself (not just DBTX) because batch inserts open their own transaction.
func NewStationRepository(pool *pgxpool.Pool) *StationRepository {
	return &StationRepository{pool: pool}
}

// EnsureShard checks whether the year's table exists and creates it if
// not, returning the shard table name.
func (r *StationRepository) EnsureShard(ctx context.Context, year int) (string, error) {
	table := ShardTableName(year)

	var exists *string
	if err := r.pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, table).Scan(&exists); err != nil {
		return "", fmt.Errorf("check shard %s: %w", table, err)
	}
	if exists != nil {
		return table, nil
	}

	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id bigserial PRIMARY KEY,
			is_del smallint NOT NULL DEFAULT 0,
			station_code varchar(200) NOT NULL,
			surge double precision NOT NULL,
			task_id varchar(8) NOT NULL,
			forecast_ts bigint NOT NULL,
			issue_ts bigint NOT NULL,
			forecast_dt timestamptz,
			issue_dt timestamptz
		)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_station_code ON %s (station_code)`, table, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_task_id ON %s (task_id)`, table, table),
	}
	for _, stmt := range ddl {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return "", fmt.Errorf("create shard %s: %w", table, err)
		}
	}
	return table, nil
}

// InsertBatch writes a batch of records into the named shard within one
// short-lived transaction.
func (r *StationRepository) InsertBatch(ctx context.Context, table string, recs []domain.StationSurgeRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin station batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	sql := fmt.Sprintf(`INSERT INTO %s
		(station_code, surge, task_id, forecast_ts, issue_ts, forecast_dt, issue_dt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`, table)

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(sql, rec.StationCode, rec.Surge, rec.TaskID,
			rec.ForecastTs, rec.IssueTs, rec.ForecastDt, rec.IssueDt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %d rows into %s: %w", len(recs), table, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit station batch: %w", err)
	}
	return nil
}
