package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
	"github.com/couchcryptid/surge-forecast-etl/internal/observability"
)

// Family labels shared by logs and metrics.
const (
	familyStation  = "station"
	familyMaxSurge = "max_surge"
	familyWind     = "wind"
)

// StationPipeline ingests the hourly station surge report for the cycle
// governing the current wall clock.
type StationPipeline struct {
	Clock    clockwork.Clock
	Stager   Stager
	Tasks    TaskStore
	Steps    StepSink
	Stations StationWriter
	Alias    map[string]string
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

// Run executes one station ingestion: resolve the cycle, stage the report,
// parse the per-station series and batch them into the issue-year shard.
func (p *StationPipeline) Run(ctx context.Context) error {
	start := p.Clock.Now()
	p.Metrics.RunsStarted.WithLabelValues(familyStation).Inc()

	cycle := domain.ResolveStationCycle(p.Clock.Now())
	taskID := domain.NewTaskKey()
	noSource := false

	err := RunTask(ctx, p.Tasks, p.Steps, p.Logger,
		"station surge ingest "+cycle.Stamp(), domain.TaskTypeStation, taskID,
		func(tc *TaskContext) (runOutcome, error) {
			var staged *domain.StagedFile
			err := tc.Step(ctx, domain.StepStageStation, func() error {
				var serr error
				staged, serr = p.Stager.Stage(ctx, taskID, cycle)
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}
			if staged == nil {
				noSource = true
				return runOutcome{noSource: true}, nil
			}
			p.Metrics.FilesStaged.WithLabelValues(familyStation).Inc()

			// The issue instant is recovered from the staged file's name,
			// not from the resolved cycle: a late run must still file rows
			// under the cycle the report was actually issued for.
			var issue domain.Cycle
			var series []domain.StationSeries
			err = tc.Step(ctx, domain.StepReadStation, func() error {
				art, aerr := domain.NewSurgeArtifact(*staged)
				if aerr != nil {
					return aerr
				}
				issue = art.CycleStart()
				var rerr error
				series, rerr = domain.ReadStationSurgeTable(staged.FullPath(), p.Alias)
				return rerr
			})
			if err != nil {
				return runOutcome{}, err
			}

			records := stationRecords(series, issue, taskID)
			err = tc.Step(ctx, domain.StepStoreStation, func() error {
				table, serr := p.Stations.EnsureShard(ctx, issue.Year())
				if serr != nil {
					return serr
				}
				return p.Stations.InsertBatch(ctx, table, records)
			})
			if err != nil {
				return runOutcome{}, err
			}
			p.Metrics.RowsInserted.Add(float64(len(records)))

			tc.Logger.Info("station surge ingested",
				"cycle", issue.Stamp(), "stations", len(series), "rows", len(records))
			return runOutcome{}, nil
		})

	p.Metrics.RunDuration.WithLabelValues(familyStation).Observe(p.Clock.Since(start).Seconds())
	switch {
	case err != nil:
		p.Metrics.RunsFailed.WithLabelValues(familyStation).Inc()
		return fmt.Errorf("station run: %w", err)
	case noSource:
		p.Metrics.RunsNoSource.WithLabelValues(familyStation).Inc()
	default:
		p.Metrics.RunsSucceeded.WithLabelValues(familyStation).Inc()
	}
	return nil
}

// stationRecords flattens the per-station series into shard rows. Forecast
// timestamps advance hourly from the issue instant; the first value of
// every series is the issue hour itself.
func stationRecords(series []domain.StationSeries, cycle domain.Cycle, taskID string) []domain.StationSurgeRecord {
	var out []domain.StationSurgeRecord
	issue := cycle.UTC()
	for _, s := range series {
		for i, v := range s.Values {
			forecast := issue.Add(time.Duration(i) * time.Hour)
			out = append(out, domain.StationSurgeRecord{
				StationCode: s.Code,
				Surge:       v,
				TaskID:      taskID,
				ForecastTs:  forecast.Unix(),
				IssueTs:     issue.Unix(),
				ForecastDt:  forecast,
				IssueDt:     issue,
			})
		}
	}
	return out
}
