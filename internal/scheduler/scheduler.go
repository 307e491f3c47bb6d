// Package scheduler runs background jobs that keep cached state warm.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"indian-airlines-ivr/internal/metrics"
	"indian-airlines-ivr/internal/observability"

	"golang.org/x/sync/errgroup"
)

// Job represents a scheduled job
type Job interface {
	// Name returns the job name for logging
	Name() string
	// Run executes the job
	Run(ctx context.Context) error
	// Schedule returns the interval between runs
	Schedule() time.Duration
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	jobs   []Job
	logger *observability.Logger
}

// New creates a new scheduler
func New(logger *observability.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make([]Job, 0),
		logger: logger,
	}
}

// Register adds jobs to the scheduler. Jobs with a non-positive schedule
// are skipped.
func (s *Scheduler) Register(jobs ...Job) {
	for _, job := range jobs {
		if job.Schedule() <= 0 {
			s.logger.Info(context.Background(), fmt.Sprintf("Scheduled job %s disabled", job.Name()))
			continue
		}
		s.jobs = append(s.jobs, job)
		s.logger.Info(context.Background(), fmt.Sprintf("Registered scheduled job: %s (interval: %s)",
			job.Name(), job.Schedule()))
	}
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		names = append(names, job.Name())
	}
	return names
}

// Run executes every job immediately and then on its schedule. It blocks
// until ctx is cancelled and every job loop has returned.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info(ctx, fmt.Sprintf("Starting scheduler with %d jobs", len(s.jobs)))

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		job := job
		g.Go(func() error {
			s.runJob(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info(ctx, "Scheduler stopped")
}

// runJob runs a single job on its schedule
func (s *Scheduler) runJob(ctx context.Context, job Job) {
	jobCtx := observability.WithFields(ctx, observability.Field{Key: "scheduled_job", Value: job.Name()})

	s.executeJob(jobCtx, job)

	ticker := time.NewTicker(job.Schedule())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug(jobCtx, fmt.Sprintf("Stopping scheduled job: %s", job.Name()))
			return
		case <-ticker.C:
			s.executeJob(jobCtx, job)
		}
	}
}

// executeJob executes a job and logs timing. Failures are logged and
// counted; the job runs again on its next tick.
func (s *Scheduler) executeJob(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	metrics.IncJobRun(job.Name(), err)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error(ctx, fmt.Sprintf("Job %s failed after %v", job.Name(), duration), err)
		return
	}
	s.logger.Debug(ctx, fmt.Sprintf("Job %s completed in %v", job.Name(), duration))
}
