package store

import (
	"context"
	"fmt"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// CoverageRepository registers coverage artifact rows in the single,
// non-sharded geo_coverage_file table.
type CoverageRepository struct {
	db DBTX
}

// NewCoverageRepository creates a CoverageRepository on the given connection.
func NewCoverageRepository(db DBTX) *CoverageRepository {
	return &CoverageRepository{db: db}
}

// InsertArtifact registers one physical derived file and returns the
// generated row id, which callers thread into derivative rows as the
// lineage parent.
func (r *CoverageRepository) InsertArtifact(ctx context.Context, rec domain.CoverageArtifactRecord) (int64, error) {
	parent := rec.ParentID
	if parent == 0 {
		parent = domain.NoParent
	}
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO geo_coverage_file
			(task_id, relative_path, file_name, file_ext, coverage_type,
			 forecast_ts, forecast_dt, issue_ts, issue_dt, pid)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		rec.TaskID, rec.RelativePath, rec.FileName, rec.FileExt, int(rec.Type),
		rec.ForecastTs, rec.ForecastDt, rec.IssueTs, rec.IssueDt, parent,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert coverage artifact %s: %w", rec.FileName, err)
	}
	return id, nil
}
