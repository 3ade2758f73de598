// Package sendqueue implements the Outbound Send Queue (§4.9): a durable,
// retrying, worker-pooled dispatch layer that decouples reply generation
// from provider delivery.
//
// Grounded on goa-ai's registry/result_stream.go: a Redis-backed manager
// wrapping a narrow store interface rather than a bare *redis.Client, with
// an Options struct carrying the client and its TTL/retention knobs.
package sendqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultAttempts is the default retry budget for a job (§4.9).
const DefaultAttempts = 5

// DefaultInitialBackoff is the first retry delay; later attempts double it.
const DefaultInitialBackoff = 3 * time.Second

// retention bounds (§4.9): keep last 100 completed, last 500 failed.
const (
	retainCompleted = 100
	retainFailed    = 500
)

// Job is one unit of outbound work.
type Job struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"maxAttempts"`
	Backoff     time.Duration   `json:"backoff"`
}

// Options configure a single enqueue call.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Attempts <= 0 {
		o.Attempts = DefaultAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultInitialBackoff
	}
	return o
}

// Handler executes one job. A returned error causes a retry (or
// dead-lettering once attempts are exhausted).
type Handler func(ctx context.Context, job Job) error

// store is the narrow persistence surface sendqueue needs, so tests can
// substitute an in-memory fake instead of a live Redis instance (§9 Design
// notes: narrow interfaces over concrete clients).
type store interface {
	enqueue(ctx context.Context, queueName string, readyAt time.Time, jobID string, data []byte) error
	dequeueReady(ctx context.Context, queueName string, now time.Time, limit int) ([]Job, error)
	reschedule(ctx context.Context, queueName string, readyAt time.Time, jobID string, data []byte) error
	remove(ctx context.Context, queueName string, jobID string) error
	recordCompleted(ctx context.Context, queueName, jobID string) error
	recordDeadLetter(ctx context.Context, queueName, jobID string) error
}

// Queue is a durable, Redis-backed job queue with a bounded worker pool.
type Queue struct {
	store   store
	workers int
}

// New builds a Queue backed by a Redis client. workers sets the size of the
// pool each Run call uses to drain a given queue name.
func New(client RedisClient, workers int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	return &Queue{store: &redisStore{client: client}, workers: workers}
}

// Enqueue durably schedules a job for immediate execution, per the §4.9
// contract `enqueue(queue_name, job_name, payload, options)`.
func (q *Queue) Enqueue(ctx context.Context, queueName, jobName string, payload any, opts Options) error {
	opts = opts.withDefaults()
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sendqueue: marshal payload: %w", err)
	}
	job := Job{
		ID:          uuid.NewString(),
		Queue:       queueName,
		Name:        jobName,
		Payload:     raw,
		Attempt:     0,
		MaxAttempts: opts.Attempts,
		Backoff:     opts.Backoff,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sendqueue: marshal job: %w", err)
	}
	return q.store.enqueue(ctx, queueName, time.Now(), job.ID, data)
}

// Run drains queueName with the configured worker pool until ctx is
// cancelled. Each worker polls for ready jobs and dispatches them to
// handler, re-queueing on failure with exponential backoff and
// dead-lettering once attempts are exhausted.
func (q *Queue) Run(ctx context.Context, queueName string, handler Handler) {
	for i := 0; i < q.workers; i++ {
		go q.worker(ctx, queueName, handler)
	}
	<-ctx.Done()
}

func (q *Queue) worker(ctx context.Context, queueName string, handler Handler) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.pollOnce(ctx, queueName, handler)
		}
	}
}

func (q *Queue) pollOnce(ctx context.Context, queueName string, handler Handler) {
	jobs, err := q.store.dequeueReady(ctx, queueName, time.Now(), 1)
	if err != nil {
		slog.Error("sendqueue.poll_failed", "queue", queueName, "error", err)
		return
	}
	for _, job := range jobs {
		q.execute(ctx, job, handler)
	}
}

func (q *Queue) execute(ctx context.Context, job Job, handler Handler) {
	err := handler(ctx, job)
	if err == nil {
		if err := q.store.recordCompleted(ctx, job.Queue, job.ID); err != nil {
			slog.Error("sendqueue.record_completed_failed", "job", job.ID, "error", err)
		}
		return
	}

	job.Attempt++
	if job.Attempt >= job.MaxAttempts {
		slog.Error("CRITICAL sendqueue.dead_letter", "queue", job.Queue, "job", job.ID, "name", job.Name, "error", err)
		if derr := q.store.recordDeadLetter(ctx, job.Queue, job.ID); derr != nil {
			slog.Error("sendqueue.record_dead_letter_failed", "job", job.ID, "error", derr)
		}
		return
	}

	backoff := job.Backoff << uint(job.Attempt-1)
	data, merr := json.Marshal(job)
	if merr != nil {
		slog.Error("sendqueue.reschedule_marshal_failed", "job", job.ID, "error", merr)
		return
	}
	if rerr := q.store.reschedule(ctx, job.Queue, time.Now().Add(backoff), job.ID, data); rerr != nil {
		slog.Error("sendqueue.reschedule_failed", "job", job.ID, "error", rerr)
	}
}

// ErrQueueUnavailable wraps a broker-connectivity failure. Per §4.9, this is
// fatal to delivery but never to the turn that produced it — callers log it
// at CRITICAL and continue.
var ErrQueueUnavailable = errors.New("sendqueue: broker unavailable")
