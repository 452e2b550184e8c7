package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Config holds configuration for the scheduler.
type Config struct {
	// Cron is a standard five-field cron expression.
	Cron         string
	WorkerCount  int
	JobDelay     time.Duration
	QueueSize    int
	RunOnStartup bool
	JobProvider  func(context.Context) ([]Job, error)
	Location     *time.Location
}

// Scheduler enqueues the provider's jobs on every cron tick.
type Scheduler struct {
	cron         *cron.Cron
	entryID      cron.EntryID
	workerPool   *WorkerPool
	runOnStartup bool
	jobProvider  func(context.Context) ([]Job, error)
	logger       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates the cron expression and builds the scheduler and its worker pool.
func New(cfg Config, logger zerolog.Logger) (*Scheduler, error) {
	if cfg.JobProvider == nil {
		return nil, fmt.Errorf("job provider is required")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	logger = logger.With().Str("component", "scheduler").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		workerPool:   NewWorkerPool(cfg.WorkerCount, cfg.JobDelay, cfg.QueueSize, logger),
		runOnStartup: cfg.RunOnStartup,
		jobProvider:  cfg.JobProvider,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}

	id, err := s.cron.AddFunc(cfg.Cron, s.runJobs)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Cron, err)
	}
	s.entryID = id

	logger.Info().
		Str("cron", cfg.Cron).
		Int("workers", cfg.WorkerCount).
		Dur("job_delay", cfg.JobDelay).
		Msg("scheduler initialized")

	return s, nil
}

// Start launches the worker pool and the cron loop.
func (s *Scheduler) Start() {
	s.workerPool.Start()

	if s.runOnStartup {
		s.logger.Info().Msg("running initial job batch on startup")
		s.TriggerNow()
	}

	s.cron.Start()
	s.logger.Info().Time("next_run", s.NextRun()).Msg("scheduler started")
}

// runJobs fetches the current job list and submits it to the pool.
func (s *Scheduler) runJobs() {
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch jobs")
		return
	}

	if len(jobs) == 0 {
		s.logger.Info().Msg("no jobs to process")
		return
	}

	s.workerPool.SubmitBatch(jobs)
}

// TriggerNow runs a job batch immediately, outside the cron schedule.
func (s *Scheduler) TriggerNow() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJobs()
	}()
}

// NextRun returns the next scheduled tick, or the zero time before Start.
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// Shutdown stops scheduling new batches and drains the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.logger.Info().Msg("initiating graceful shutdown")

	<-s.cron.Stop().Done()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		s.logger.Warn().Msg("timeout waiting for job batches to finish")
	}

	s.workerPool.ShutdownWithTimeout(timeout)

	s.logger.Info().Msg("scheduler shutdown complete")
}
