// Package scheduler runs worker housekeeping jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
}

// New binds every job run to ctx. Specs are standard 5-field expressions or descriptors like "@every 1m".
func New(ctx context.Context) *Scheduler {
	logger := slogAdapter{}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
			cron.WithLogger(logger),
		),
		ctx: ctx,
	}
}

func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no run func", job.Name)
	}
	_, err := s.cron.AddFunc(job.Spec, func() {
		runCtx := s.ctx
		if job.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(s.ctx, job.Timeout)
			defer cancel()
		}
		started := time.Now()
		if err := job.Run(runCtx); err != nil {
			slog.Error("scheduled_job_failed", "job", job.Name, "error", err, "duration_ms", time.Since(started).Milliseconds())
			return
		}
		slog.Debug("scheduled_job_done", "job", job.Name, "duration_ms", time.Since(started).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("schedule job %q (%s): %w", job.Name, job.Spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

type slogAdapter struct{}

func (slogAdapter) Info(msg string, keysAndValues ...any) {
	slog.Debug("cron_"+msg, keysAndValues...)
}

func (slogAdapter) Error(err error, msg string, keysAndValues ...any) {
	slog.Error("cron_"+msg, append([]any{"error", err}, keysAndValues...)...)
}
