// Package pipeline sequences the per-family ingestion stages: resolve the
// governing cycle, stage the source file, standardize rasters, and persist
// records, with every stage recorded in the task provenance ledger.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// TaskStore manages task lifecycle rows. Implemented by store.TaskRepository.
type TaskStore interface {
	CreateTask(ctx context.Context, task domain.Task) error
	UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus, result string) error
}

// StepSink appends audit rows to the step ledger. Implemented by
// store.TaskRepository.
type StepSink interface {
	AppendStep(ctx context.Context, taskID string, step domain.JobStep, ok bool) error
}

// StationWriter persists station surge batches into year shards.
// Implemented by store.StationRepository.
type StationWriter interface {
	EnsureShard(ctx context.Context, year int) (string, error)
	InsertBatch(ctx context.Context, table string, recs []domain.StationSurgeRecord) error
}

// CoverageWriter registers coverage artifact rows. Implemented by
// store.CoverageRepository.
type CoverageWriter interface {
	InsertArtifact(ctx context.Context, rec domain.CoverageArtifactRecord) (int64, error)
}

// Stager materializes the source file for a cycle, returning nil when it
// has not been published yet.
type Stager interface {
	Stage(ctx context.Context, taskID string, cycle domain.Cycle) (*domain.StagedFile, error)
}

// Notifier publishes artifact events after a successful family run. A nil
// Notifier disables publishing.
type Notifier interface {
	PublishArtifacts(ctx context.Context, event domain.ArtifactEvent) error
}

// TaskContext threads the task identity and the step ledger through every
// stage call. It replaces implicit ambient state: a stage that never
// receives the context cannot quietly skip the audit trail.
type TaskContext struct {
	TaskID string
	Steps  StepSink
	Logger *slog.Logger
}

// Step runs one pipeline stage and appends a ledger row on every exit
// path, marking whether the stage completed or failed. Ledger write
// failures are logged, never allowed to mask the stage's own outcome.
func (tc *TaskContext) Step(ctx context.Context, step domain.JobStep, fn func() error) error {
	err := fn()
	if lerr := tc.Steps.AppendStep(ctx, tc.TaskID, step, err == nil); lerr != nil {
		tc.Logger.Error("append step ledger row failed", "task_id", tc.TaskID, "step", int(step), "error", lerr)
	}
	return err
}

// runOutcome distinguishes "ran to completion" from "source not yet
// published"; the latter maps to SUCCESS with an explanatory result, not
// to FAIL.
type runOutcome struct {
	noSource bool
}

// RunTask wraps a family run in the task lifecycle: create the task row at
// RUNNING, execute, then transition to SUCCESS or FAIL. "Source not yet
// published" is recorded as SUCCESS with result "no source file" so the
// two outcomes stay distinguishable without a status change.
func RunTask(ctx context.Context, tasks TaskStore, steps StepSink, logger *slog.Logger,
	name string, typ domain.TaskType, taskID string,
	fn func(tc *TaskContext) (runOutcome, error)) error {

	task := domain.Task{
		ID:        taskID,
		Name:      name,
		Status:    domain.TaskRunning,
		Type:      typ,
		Timestamp: time.Now().UTC().Unix(),
	}
	if err := tasks.CreateTask(ctx, task); err != nil {
		return err
	}

	tc := &TaskContext{TaskID: taskID, Steps: steps, Logger: logger.With("task_id", taskID)}

	outcome, err := fn(tc)
	if err != nil {
		if uerr := tasks.UpdateTaskStatus(ctx, taskID, domain.TaskFail, err.Error()); uerr != nil {
			logger.Error("mark task failed", "task_id", taskID, "error", uerr)
		}
		return err
	}

	result := ""
	if outcome.noSource {
		result = "no source file"
	}
	if uerr := tasks.UpdateTaskStatus(ctx, taskID, domain.TaskSuccess, result); uerr != nil {
		logger.Error("mark task succeeded", "task_id", taskID, "error", uerr)
	}
	return nil
}
