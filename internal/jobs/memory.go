package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned when the in-memory buffer cannot take more jobs
var ErrQueueFull = errors.New("job queue is full")

// MemoryQueue is an in-process queue for development and tests. Failed jobs
// are retried with a linear backoff until maxAttempts is reached. Jobs do not
// survive a restart.
type MemoryQueue struct {
	jobs        chan Job
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// NewMemoryQueue creates a new in-memory queue
func NewMemoryQueue(size, maxAttempts int, logger *zap.Logger) *MemoryQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemoryQueue{
		jobs:        make(chan Job, size),
		maxAttempts: maxAttempts,
		backoff:     time.Second,
		logger:      logger,
	}
}

// WithBackoff sets the delay unit between attempts
func (q *MemoryQueue) WithBackoff(backoff time.Duration) *MemoryQueue {
	q.backoff = backoff
	return q
}

// Enqueue adds a job without blocking
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Len returns the number of buffered jobs
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// Run processes jobs until ctx is cancelled
func (q *MemoryQueue) Run(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-q.jobs:
			q.process(ctx, handler, job)
		}
	}
}

func (q *MemoryQueue) process(ctx context.Context, handler Handler, job Job) {
	err := handler(ctx, job)
	if err == nil {
		return
	}

	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.String("job_type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Error(err),
	}

	if job.Attempt >= q.maxAttempts {
		q.logger.Error("Job failed permanently", fields...)
		return
	}

	q.logger.Warn("Job failed, scheduling retry", fields...)

	retry := job
	retry.Attempt++
	delay := q.backoff * time.Duration(job.Attempt)

	go func() {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		if err := q.Enqueue(ctx, retry); err != nil {
			q.logger.Error("Failed to requeue job", zap.String("job_id", retry.ID), zap.Error(err))
		}
	}()
}
