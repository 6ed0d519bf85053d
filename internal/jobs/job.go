// Package jobs carries background work from the web process to a worker.
// Delivery is at-least-once; handlers must tolerate redelivery.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownJobType is returned when no handler is registered for a job
var ErrUnknownJobType = errors.New("unknown job type")

// Job is a typed message placed on a queue
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	DedupKey   string          `json:"dedup_key,omitempty"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewJob creates a job with a JSON encoded payload
func NewJob(jobType, dedupKey string, payload interface{}) (Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("failed to encode %s payload: %w", jobType, err)
	}

	return Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		DedupKey:   dedupKey,
		Payload:    data,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into v
func (j Job) Decode(v interface{}) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", j.Type, err)
	}
	return nil
}

// Handler processes a single job. A returned error makes the queue redeliver.
type Handler func(ctx context.Context, job Job) error

// Queue accepts jobs for asynchronous processing
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Consumer runs a handler for every delivered job until ctx is done
type Consumer interface {
	Run(ctx context.Context, handler Handler) error
}

// Router dispatches jobs to the handler registered for their type
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds a handler to a job type
func (r *Router) Register(jobType string, handler Handler) {
	r.handlers[jobType] = handler
}

// Handle runs the handler registered for the job's type
func (r *Router) Handle(ctx context.Context, job Job) error {
	handler, ok := r.handlers[job.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
	return handler(ctx, job)
}
