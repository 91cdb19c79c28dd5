// Package stager materializes source forecast files into managed local
// storage. A nil result with a nil error means "not yet published", which
// is the normal outcome for early scheduler ticks and never an error.
package stager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// FileRegistry records staged files in the task provenance ledger.
// Implemented by store.TaskRepository.
type FileRegistry interface {
	RegisterTaskFile(ctx context.Context, taskID, relativePath, fileName string) error
}

// MountStager copies a source file from a mounted remote directory into
// the local storage tree. The source layout is flat; the destination is
// the owning cycle's {year}/{month} directory.
type MountStager struct {
	SourceRoot string
	DestRoot   string
	Name       func(domain.Cycle) string
	Files      FileRegistry
	Logger     *slog.Logger
}

// Stage locates the expected file for the cycle and copies it into managed
// storage, registering a task_files row. Returns (nil, nil) when the
// source has not been published yet.
func (s *MountStager) Stage(ctx context.Context, taskID string, cycle domain.Cycle) (*domain.StagedFile, error) {
	name := s.Name(cycle)
	sourcePath := filepath.Join(s.SourceRoot, name)

	if _, err := os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			s.Logger.Info("source file not yet published", "file", name, "task_id", taskID)
			return nil, nil
		}
		return nil, fmt.Errorf("stat source %s: %w", sourcePath, err)
	}

	staged := &domain.StagedFile{Root: s.DestRoot, RelativePath: cycle.RelativePath(), Name: name}
	if err := os.MkdirAll(filepath.Dir(staged.FullPath()), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if err := copyFile(sourcePath, staged.FullPath()); err != nil {
		return nil, err
	}

	if err := s.Files.RegisterTaskFile(ctx, taskID, staged.RelativePath, staged.Name); err != nil {
		return nil, err
	}
	s.Logger.Info("staged source file", "file", name, "task_id", taskID)
	return staged, nil
}

// copyFile copies source to dest preserving bytes exactly.
func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open source %s: %w", source, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}
