package store

import (
	"context"
	"fmt"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// TaskRepository writes the task lifecycle ledger: task_infos, task_jobs
// and task_files. Every row is append-or-update; nothing is ever deleted.
type TaskRepository struct {
	db DBTX
}

// NewTaskRepository creates a TaskRepository on the given connection.
func NewTaskRepository(db DBTX) *TaskRepository {
	return &TaskRepository{db: db}
}

// CreateTask inserts the task row. The id is the caller-generated short
// key; re-creating an existing key is an error, matching one-key-per-run.
func (r *TaskRepository) CreateTask(ctx context.Context, task domain.Task) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO task_infos (id, task_name, task_status, task_type, timestamp, task_result)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		task.ID, task.Name, int(task.Status), int(task.Type), task.Timestamp, task.Result)
	if err != nil {
		return fmt.Errorf("create task %s: %w", task.ID, err)
	}
	return nil
}

// UpdateTaskStatus transitions a task and records its result.
func (r *TaskRepository) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus, result string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE task_infos SET task_status = $2, task_result = $3, gmt_modify_time = now() WHERE id = $1`,
		id, int(status), result)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	return nil
}

// AppendStep adds one audit row to the step ledger. Rows are append-only:
// no stage ever reads them back to decide whether to skip work.
func (r *TaskRepository) AppendStep(ctx context.Context, taskID string, step domain.JobStep, ok bool) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO task_jobs (task_id, job_step, ok) VALUES ($1, $2, $3)`,
		taskID, int(step), ok)
	if err != nil {
		return fmt.Errorf("append step %d for task %s: %w", step, taskID, err)
	}
	return nil
}

// RegisterTaskFile records that a source file was staged under a task.
func (r *TaskRepository) RegisterTaskFile(ctx context.Context, taskID, relativePath, fileName string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO task_files (task_id, relative_path, file_name) VALUES ($1, $2, $3)`,
		taskID, relativePath, fileName)
	if err != nil {
		return fmt.Errorf("register task file %s: %w", fileName, err)
	}
	return nil
}
