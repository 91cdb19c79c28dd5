package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
	"github.com/couchcryptid/surge-forecast-etl/internal/observability"
	"github.com/couchcryptid/surge-forecast-etl/internal/raster"
)

// Crop window applied to retrieved wind fields before splitting. The
// bounds are closed on both ends.
const (
	windCropLonMin = 105.0
	windCropLonMax = 126.9
	windCropLatMin = 16.1
	windCropLatMax = 41.0
)

// WindPipeline ingests the gridded wind field: the source NetCDF is
// retrieved over FTP, cropped to the service domain, re-exported as a
// split NetCDF and rasterized into one GeoTIFF per forecast timestep.
type WindPipeline struct {
	Clock     clockwork.Clock
	Stager    Stager
	Tasks     TaskStore
	Steps     StepSink
	Coverages CoverageWriter
	Notifier  Notifier
	FieldName string
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// Run executes one wind ingestion for the cycle governing the current wall
// clock. Individual timestep rasterization failures are logged and counted
// but do not abort the run; a run fails only when no timestep could be
// rasterized at all.
func (p *WindPipeline) Run(ctx context.Context) error {
	start := p.Clock.Now()
	p.Metrics.RunsStarted.WithLabelValues(familyWind).Inc()

	cycle := domain.ResolveWindCycle(p.Clock.Now())
	taskID := domain.NewTaskKey()
	noSource := false
	var event domain.ArtifactEvent

	err := RunTask(ctx, p.Tasks, p.Steps, p.Logger,
		"wind field ingest "+cycle.Stamp(), domain.TaskTypeCoverage, taskID,
		func(tc *TaskContext) (runOutcome, error) {
			var staged *domain.StagedFile
			err := tc.Step(ctx, domain.StepRetrieveWind, func() error {
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
			p.Metrics.FilesStaged.WithLabelValues(familyWind).Inc()

			// Issue instant comes from the cycle token in the retrieved
			// file's name, not from the resolved cycle.
			var issue domain.Cycle
			var sourceID int64
			err = tc.Step(ctx, domain.StepStoreCoverage, func() error {
				art, aerr := domain.NewSurgeArtifact(*staged)
				if aerr != nil {
					return aerr
				}
				issue = art.CycleStart()
				var serr error
				sourceID, serr = p.insert(ctx, taskID, issue, *staged, domain.CoverageWindSource, domain.NoParent, issue.UTC())
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}
			refs := []domain.ArtifactRef{{ID: sourceID, Type: domain.CoverageWindSource, FileName: staged.Name}}

			var cropped *raster.WindField
			splitFile := domain.StagedFile{Root: staged.Root, RelativePath: staged.RelativePath, Name: staged.BaseName() + "_output.nc"}
			var splitID int64
			err = tc.Step(ctx, domain.StepSplitWind, func() error {
				field, rerr := raster.ReadWindField(staged.FullPath(), p.FieldName)
				if rerr != nil {
					return rerr
				}
				cropped = field.Crop(windCropLonMin, windCropLonMax, windCropLatMin, windCropLatMax)
				if werr := raster.WriteWindField(splitFile.FullPath(), cropped); werr != nil {
					return werr
				}
				var serr error
				splitID, serr = p.insert(ctx, taskID, issue, splitFile, domain.CoverageWindSplit, sourceID, issue.UTC())
				return serr
			})
			if err != nil {
				return runOutcome{}, err
			}
			p.Metrics.ArtifactsWritten.WithLabelValues(coverageLabel(domain.CoverageWindSplit)).Inc()
			refs = append(refs, domain.ArtifactRef{ID: splitID, Type: domain.CoverageWindSplit, FileName: splitFile.Name})

			var stepRefs []domain.ArtifactRef
			err = tc.Step(ctx, domain.StepRasterizeWind, func() error {
				var rerr error
				stepRefs, rerr = p.rasterizeSteps(ctx, tc, taskID, issue, *staged, cropped, splitID)
				return rerr
			})
			if err != nil {
				return runOutcome{}, err
			}
			refs = append(refs, stepRefs...)

			event = domain.ArtifactEvent{TaskID: taskID, Family: familyWind, Cycle: issue.UTC(), Artifacts: refs}
			tc.Logger.Info("wind field ingested",
				"cycle", issue.Stamp(), "split", splitFile.Name, "timesteps", len(cropped.Times), "images", len(stepRefs))
			return runOutcome{}, nil
		})

	p.Metrics.RunDuration.WithLabelValues(familyWind).Observe(p.Clock.Since(start).Seconds())
	switch {
	case err != nil:
		p.Metrics.RunsFailed.WithLabelValues(familyWind).Inc()
		return fmt.Errorf("wind run: %w", err)
	case noSource:
		p.Metrics.RunsNoSource.WithLabelValues(familyWind).Inc()
	default:
		p.Metrics.RunsSucceeded.WithLabelValues(familyWind).Inc()
		p.notify(ctx, event)
	}
	return nil
}

// rasterizeSteps writes one GeoTIFF per forecast timestep. A failed
// timestep is skipped; the error returned covers only the degenerate case
// where every timestep failed.
func (p *WindPipeline) rasterizeSteps(ctx context.Context, tc *TaskContext, taskID string,
	issue domain.Cycle, staged domain.StagedFile, field *raster.WindField, splitID int64) ([]domain.ArtifactRef, error) {

	var refs []domain.ArtifactRef
	for i, forecast := range field.Times {
		tifFile := domain.StagedFile{
			Root:         staged.Root,
			RelativePath: staged.RelativePath,
			Name:         fmt.Sprintf("%s_%d.tif", staged.BaseName(), i),
		}
		if err := raster.WriteGeoTIFF(tifFile.FullPath(), field.Step(i)); err != nil {
			p.Metrics.ConversionErrors.Inc()
			tc.Logger.Error("rasterize wind timestep", "index", i, "file", tifFile.Name, "error", err)
			continue
		}
		id, err := p.insert(ctx, taskID, issue, tifFile, domain.CoverageWindTif, splitID, forecast.UTC())
		if err != nil {
			p.Metrics.ConversionErrors.Inc()
			tc.Logger.Error("register wind timestep image", "index", i, "file", tifFile.Name, "error", err)
			continue
		}
		p.Metrics.ArtifactsWritten.WithLabelValues(coverageLabel(domain.CoverageWindTif)).Inc()
		refs = append(refs, domain.ArtifactRef{ID: id, Type: domain.CoverageWindTif, FileName: tifFile.Name})
	}
	if len(field.Times) > 0 && len(refs) == 0 {
		return nil, fmt.Errorf("rasterize wind field %s: all %d timesteps failed", staged.Name, len(field.Times))
	}
	return refs, nil
}

// insert registers a coverage row for the wind family with an explicit
// forecast instant; the issue instant is always the cycle start.
func (p *WindPipeline) insert(ctx context.Context, taskID string, issueCycle domain.Cycle,
	f domain.StagedFile, typ domain.CoverageType, parent int64, forecast time.Time) (int64, error) {
	issue := issueCycle.UTC()
	return p.Coverages.InsertArtifact(ctx, domain.CoverageArtifactRecord{
		TaskID:       taskID,
		RelativePath: f.RelativePath,
		FileName:     f.Name,
		FileExt:      filepath.Ext(f.Name),
		Type:         typ,
		ForecastTs:   forecast.Unix(),
		ForecastDt:   forecast,
		IssueTs:      issue.Unix(),
		IssueDt:      issue,
		ParentID:     parent,
	})
}

func (p *WindPipeline) notify(ctx context.Context, event domain.ArtifactEvent) {
	if p.Notifier == nil || len(event.Artifacts) == 0 {
		return
	}
	if err := p.Notifier.PublishArtifacts(ctx, event); err != nil {
		p.Logger.Error("publish artifact event", "task_id", event.TaskID, "error", err)
	}
}
