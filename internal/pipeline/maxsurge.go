package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
	"github.com/couchcryptid/surge-forecast-etl/internal/observability"
	"github.com/couchcryptid/surge-forecast-etl/internal/raster"
)

// MaxSurgePipeline ingests the gridded max-surge field: the raw text grid
// is staged, standardized with the dry sentinel masked out, then exported
// as a NetCDF grid and a GeoTIFF image. The three artifact rows form a
// lineage chain: text grid, then NetCDF, then image.
type MaxSurgePipeline struct {
	Clock     clockwork.Clock
	Stager    Stager
	Tasks     TaskStore
	Steps     StepSink
	Coverages CoverageWriter
	Notifier  Notifier
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Run executes one max-surge ingestion for the cycle governing the current
// wall clock. The max-surge family shares the station publication schedule.
func (p *MaxSurgePipeline) Run(ctx context.Context) error {
	start := p.Clock.Now()
	p.Metrics.RunsStarted.WithLabelValues(familyMaxSurge).Inc()

	cycle := domain.ResolveStationCycle(p.Clock.Now())
	taskID := domain.NewTaskKey()
	noSource := false
	var event domain.ArtifactEvent

	err := RunTask(ctx, p.Tasks, p.Steps, p.Logger,
		"max surge ingest "+cycle.Stamp(), domain.TaskTypeCoverage, taskID,
		func(tc *TaskContext) (runOutcome, error) {
			var staged *domain.StagedFile
			err := tc.Step(ctx, domain.StepStageCoverage, func() error {
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
			p.Metrics.FilesStaged.WithLabelValues(familyMaxSurge).Inc()

			// Issue instant and derived artifact names come from the cycle
			// token embedded in the staged file's name.
			var issue domain.Cycle
			var sourceID int64
			err = tc.Step(ctx, domain.StepStoreCoverage, func() error {
				art, aerr := domain.NewSurgeArtifact(*staged)
				if aerr != nil {
					return aerr
				}
				issue = art.CycleStart()
				var serr error
				sourceID, serr = p.insert(ctx, taskID, issue, *staged, domain.CoverageSourceGrid, domain.NoParent)
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}

			var grid *raster.Grid
			err = tc.Step(ctx, domain.StepStandardize, func() error {
				var serr error
				grid, serr = raster.StandardizeMaxSurge(staged.FullPath(), raster.StandardizeOptions{FilterSentinel: true})
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}

			ncFile := domain.StagedFile{Root: staged.Root, RelativePath: staged.RelativePath, Name: domain.MaxSurgeFileName(issue, "nc")}
			var ncID int64
			err = tc.Step(ctx, domain.StepConvertGrid, func() error {
				if werr := raster.WriteGrid(ncFile.FullPath(), grid); werr != nil {
					return werr
				}
				var serr error
				ncID, serr = p.insert(ctx, taskID, issue, ncFile, domain.CoverageConvertedGrid, sourceID)
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}
			p.Metrics.ArtifactsWritten.WithLabelValues(coverageLabel(domain.CoverageConvertedGrid)).Inc()

			tifFile := domain.StagedFile{Root: staged.Root, RelativePath: staged.RelativePath, Name: domain.MaxSurgeFileName(issue, "tif")}
			var tifID int64
			err = tc.Step(ctx, domain.StepConvertImage, func() error {
				if werr := raster.WriteGeoTIFF(tifFile.FullPath(), grid); werr != nil {
					return werr
				}
				var serr error
				tifID, serr = p.insert(ctx, taskID, issue, tifFile, domain.CoverageConvertedTif, ncID)
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}
			p.Metrics.ArtifactsWritten.WithLabelValues(coverageLabel(domain.CoverageConvertedTif)).Inc()

			event = domain.ArtifactEvent{
				TaskID: taskID,
				Family: familyMaxSurge,
				Cycle:  issue.UTC(),
				Artifacts: []domain.ArtifactRef{
					{ID: sourceID, Type: domain.CoverageSourceGrid, FileName: staged.Name},
					{ID: ncID, Type: domain.CoverageConvertedGrid, FileName: ncFile.Name},
					{ID: tifID, Type: domain.CoverageConvertedTif, FileName: tifFile.Name},
				},
			}
			tc.Logger.Info("max surge ingested", "cycle", issue.Stamp(), "grid", ncFile.Name, "image", tifFile.Name)
			return runOutcome{}, nil
		})

	p.Metrics.RunDuration.WithLabelValues(familyMaxSurge).Observe(p.Clock.Since(start).Seconds())
	switch {
	case err != nil:
		p.Metrics.RunsFailed.WithLabelValues(familyMaxSurge).Inc()
		return fmt.Errorf("max surge run: %w", err)
	case noSource:
		p.Metrics.RunsNoSource.WithLabelValues(familyMaxSurge).Inc()
	default:
		p.Metrics.RunsSucceeded.WithLabelValues(familyMaxSurge).Inc()
		p.notify(ctx, event)
	}
	return nil
}

// insert registers a coverage row for the max-surge family. The field is a
// whole-horizon maximum, so forecast and issue instants coincide.
func (p *MaxSurgePipeline) insert(ctx context.Context, taskID string, issue domain.Cycle,
	f domain.StagedFile, typ domain.CoverageType, parent int64) (int64, error) {
	ts := issue.UTC()
	return p.Coverages.InsertArtifact(ctx, domain.CoverageArtifactRecord{
		TaskID:       taskID,
		RelativePath: f.RelativePath,
		FileName:     f.Name,
		FileExt:      filepath.Ext(f.Name),
		Type:         typ,
		ForecastTs:   ts.Unix(),
		ForecastDt:   ts,
		IssueTs:      ts.Unix(),
		IssueDt:      ts,
		ParentID:     parent,
	})
}

// notify publishes the artifact event. Publish failures are logged and do
// not affect the task outcome.
func (p *MaxSurgePipeline) notify(ctx context.Context, event domain.ArtifactEvent) {
	if p.Notifier == nil || len(event.Artifacts) == 0 {
		return
	}
	if err := p.Notifier.PublishArtifacts(ctx, event); err != nil {
		p.Logger.Error("publish artifact event", "task_id", event.TaskID, "error", err)
	}
}

// coverageLabel maps a coverage type to its metric label.
func coverageLabel(t domain.CoverageType) string {
	switch t {
	case domain.CoverageSourceGrid:
		return "source_grid"
	case domain.CoverageConvertedGrid:
		return "converted_grid"
	case domain.CoverageConvertedTif:
		return "converted_tif"
	case domain.CoverageWindSource:
		return "wind_source"
	case domain.CoverageWindSplit:
		return "wind_split"
	case domain.CoverageWindTif:
		return "wind_tif"
	}
	return "unknown"
}
