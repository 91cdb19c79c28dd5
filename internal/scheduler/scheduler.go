// Package scheduler drives the family pipelines on their publication
// intervals. Each family polls independently: a slow wind retrieval never
// delays a station tick.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Runner is one schedulable pipeline run.
type Runner interface {
	Run(ctx context.Context) error
}

type entry struct {
	name     string
	interval time.Duration
	runner   Runner
}

// Scheduler runs registered pipelines once at startup and then on every
// interval tick until the context is cancelled.
type Scheduler struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	entries []entry
}

// New creates an empty scheduler on the given time source.
func New(clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{clock: clock, logger: logger}
}

// Add registers a pipeline under a family name with its polling interval.
func (s *Scheduler) Add(name string, interval time.Duration, r Runner) {
	s.entries = append(s.entries, entry{name: name, interval: interval, runner: r})
}

// Run starts one polling loop per registered pipeline and blocks until the
// context is cancelled and every loop has drained. Run errors are logged;
// a failed run never stops the loop, the next tick retries from scratch.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			s.loop(ctx, e)
		}(e)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, e entry) {
	s.logger.Info("pipeline loop started", "family", e.name, "interval", e.interval)

	s.runOnce(ctx, e)

	ticker := s.clock.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("pipeline loop stopping", "family", e.name, "reason", ctx.Err())
			return
		case <-ticker.Chan():
			s.runOnce(ctx, e)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, e entry) {
	if ctx.Err() != nil {
		return
	}
	if err := e.runner.Run(ctx); err != nil {
		s.logger.Error("pipeline run failed", "family", e.name, "error", err)
	}
}
