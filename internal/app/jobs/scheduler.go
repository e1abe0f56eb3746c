// Package jobs runs the platform's recurring background work on cron
// schedules: payer accumulator files, EDI deposit exports, appointment
// reminders and refresh-token cleanup.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carebridge/carebridge/internal/pkg/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of work run on a cron schedule
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type registeredJob struct {
	Job
	entryID cron.EntryID
	running atomic.Bool
}

// Scheduler runs registered jobs. A job whose previous run is still in
// progress is skipped, and panics are recovered and counted as failures.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*registeredJob

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler that evaluates specs in UTC
func NewScheduler(logger zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: logger.With().Str("component", "scheduler").Logger(),
		jobs:   make(map[string]*registeredJob),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a job. Names must be unique.
func (s *Scheduler) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	rj := &registeredJob{Job: job}
	id, err := s.cron.AddFunc(job.Spec, func() { s.run(s.ctx, rj) })
	if err != nil {
		return fmt.Errorf("job %q: invalid schedule %q: %w", job.Name, job.Spec, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj

	s.logger.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("Job registered")
	return nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop prevents new runs, cancels the context handed to running jobs and
// waits for them to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running jobs: %w", ctx.Err())
	}
}

// RunNow runs a registered job immediately in the caller's goroutine
func (s *Scheduler) RunNow(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	rj, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("job %q is not registered", name)
	}
	return s.run(ctx, rj)
}

// Names lists the registered jobs
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) run(ctx context.Context, rj *registeredJob) (status string, err error) {
	if !rj.running.CompareAndSwap(false, true) {
		s.logger.Warn().Str("job", rj.Name).Msg("Previous run still in progress, skipping")
		metrics.RecordJobRun(rj.Name, metrics.JobSkipped, 0)
		return metrics.JobSkipped, nil
	}
	defer rj.running.Store(false)

	start := time.Now()
	log := s.logger.With().Str("job", rj.Name).Logger()
	log.Info().Msg("Job started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", rj.Name, r)
		}
		elapsed := time.Since(start)
		status = metrics.JobSuccess
		if err != nil {
			status = metrics.JobFailure
			log.Error().Err(err).Dur("duration", elapsed).Msg("Job failed")
		} else {
			log.Info().Dur("duration", elapsed).Msg("Job finished")
		}
		metrics.RecordJobRun(rj.Name, status, elapsed)
	}()

	return "", rj.Run(ctx)
}
