package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jwalitptl/consultation-api/pkg/logger"
	"github.com/jwalitptl/consultation-api/pkg/metrics"
)

// Job is a unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart fires the job once before the first tick.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

type Scheduler struct {
	jobs    []Job
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewScheduler(logger *logger.Logger, metrics *metrics.Metrics, jobs ...Job) *Scheduler {
	for _, job := range jobs {
		if job.Interval <= 0 {
			panic(fmt.Sprintf("job %q: Interval must be greater than 0", job.Name))
		}
		if job.Run == nil {
			panic(fmt.Sprintf("job %q: Run must be set", job.Name))
		}
	}

	return &Scheduler{
		jobs:    jobs,
		logger:  logger,
		metrics: metrics,
	}
}

// Start runs every job on its own ticker and blocks until ctx is done and
// all in-flight runs have returned.
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.logger.Info("Starting job", "job", job.Name, "interval", job.Interval.String())

	if job.RunOnStart {
		s.runOnce(ctx, job)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Shutting down job", "job", job.Name)
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if err := job.Run(ctx); err != nil {
		s.metrics.SweepRuns.WithLabelValues(job.Name, "error").Inc()
		s.logger.Error(err, "Job failed", "job", job.Name)
		return
	}
	s.metrics.SweepRuns.WithLabelValues(job.Name, "success").Inc()
}

// Retry calls fn up to attempts times, sleeping delay between failures.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
		}
	}
	return err
}
