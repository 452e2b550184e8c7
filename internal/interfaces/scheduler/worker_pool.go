package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	jobTracer          = otel.Tracer("spendsync/scheduler")
	jobMeter           = otel.Meter("spendsync/scheduler")
	jobDuration, _     = jobMeter.Float64Histogram("scheduler.job.duration", metric.WithDescription("Job execution duration in seconds"), metric.WithUnit("s"))
	jobTotal, _        = jobMeter.Int64Counter("scheduler.job.total", metric.WithDescription("Total jobs executed by status"))
	jobQueueDropped, _ = jobMeter.Int64Counter("scheduler.job.queue_dropped", metric.WithDescription("Jobs dropped due to full queue"))
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 120 * time.Second

// ErrPoolClosed is returned by Submit once shutdown has started.
var ErrPoolClosed = errors.New("worker pool is shut down")

// WorkerPool runs submitted jobs on a fixed number of goroutines.
type WorkerPool struct {
	workerCount int
	jobDelay    time.Duration
	jobTimeout  time.Duration
	jobs        chan Job
	mu          sync.RWMutex
	closed      bool
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	logger      zerolog.Logger
}

// NewWorkerPool creates a pool with workerCount goroutines, a pause of
// jobDelay between jobs on each worker, and a queue of queueSize.
func NewWorkerPool(workerCount int, jobDelay time.Duration, queueSize int, logger zerolog.Logger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}

	return &WorkerPool{
		workerCount: workerCount,
		jobDelay:    jobDelay,
		jobTimeout:  DefaultJobTimeout,
		jobs:        make(chan Job, queueSize),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.With().Str("component", "worker_pool").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	wp.logger.Info().Int("workers", wp.workerCount).Msg("starting worker pool")

	for i := 1; i <= wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	log := wp.logger.With().Int("worker_id", id).Logger()
	log.Debug().Msg("worker started")

	for {
		select {
		case <-wp.ctx.Done():
			log.Debug().Msg("worker shutting down")
			return

		case job, ok := <-wp.jobs:
			if !ok {
				log.Debug().Msg("job channel closed")
				return
			}

			wp.processJob(id, job, log)

			if wp.jobDelay > 0 {
				select {
				case <-time.After(wp.jobDelay):
				case <-wp.ctx.Done():
					log.Debug().Msg("worker shutting down during delay")
					return
				}
			}
		}
	}
}

func (wp *WorkerPool) processJob(workerID int, job Job, log zerolog.Logger) {
	log = log.With().Int64("owner_id", job.OwnerID()).Str("job", job.Description()).Logger()
	log.Info().Msg("processing job")

	ctx, cancel := context.WithTimeout(wp.ctx, wp.jobTimeout)
	defer cancel()

	ctx, span := jobTracer.Start(ctx, "job.execute",
		trace.WithAttributes(
			attribute.Int("worker.id", workerID),
			attribute.String("job.description", job.Description()),
			attribute.Int64("job.owner_id", job.OwnerID()),
		),
	)
	defer span.End()

	start := time.Now()

	if err := job.Execute(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "error")))
		jobDuration.Record(ctx, time.Since(start).Seconds())
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("job failed")
		return
	}

	jobTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	jobDuration.Record(ctx, time.Since(start).Seconds())
	log.Info().Dur("duration", time.Since(start)).Msg("job completed")
}

// Submit queues a job without blocking. A full queue drops the job and
// returns an error.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	case wp.jobs <- job:
		return nil
	default:
		jobQueueDropped.Add(context.Background(), 1)
		wp.logger.Warn().Int64("owner_id", job.OwnerID()).Msg("job queue full, dropping job")
		return fmt.Errorf("job queue full, dropping job for owner %d", job.OwnerID())
	}
}

// SubmitBatch queues every job it can and returns how many were accepted.
func (wp *WorkerPool) SubmitBatch(jobs []Job) int {
	submitted := 0
	for _, job := range jobs {
		if err := wp.Submit(job); err != nil {
			continue
		}
		submitted++
	}
	wp.logger.Info().Int("submitted", submitted).Int("total", len(jobs)).Msg("submitted jobs to worker pool")
	return submitted
}

// Shutdown closes the queue, waits for running jobs, then cancels the pool context.
func (wp *WorkerPool) Shutdown() {
	wp.logger.Info().Msg("initiating graceful shutdown")

	wp.closeQueue()
	wp.wg.Wait()
	wp.cancel()

	wp.logger.Info().Msg("worker pool shutdown complete")
}

// ShutdownWithTimeout is Shutdown that cancels in-flight jobs once timeout passes.
func (wp *WorkerPool) ShutdownWithTimeout(timeout time.Duration) {
	wp.logger.Info().Dur("timeout", timeout).Msg("initiating graceful shutdown")

	wp.closeQueue()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.logger.Info().Msg("all workers finished gracefully")
	case <-time.After(timeout):
		wp.logger.Warn().Msg("shutdown timeout reached, cancelling running jobs")
		wp.cancel()
		<-done
	}
	wp.cancel()

	wp.logger.Info().Msg("worker pool shutdown complete")
}

// closeQueue stops Submit from accepting jobs and closes the queue once.
// Submit holds the read lock across its send, so no send can race the close.
func (wp *WorkerPool) closeQueue() {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.jobs)
}
