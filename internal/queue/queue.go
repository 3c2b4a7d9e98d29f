// Package queue implements the durable generation job queue: producers append
// jobs to the store, a worker pool executes them off the request path, and
// job state is observable for polling.
package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

// JobStore is the persistence contract for queue durability.
type JobStore interface {
	InsertJob(job *models.Job) error
	ClaimNextJob() (*models.Job, error)
	ReclaimActiveJobs() (int64, error)
	GetJob(jobID string) (*models.Job, error)
	CompleteJob(jobID string, result []byte) error
	ClearJobResult(jobID string) error
	FailJob(jobID, errMsg string) error
	RequeueJob(jobID, errMsg string, runAfter time.Time) error
}

// Queue is an explicitly constructed, injectable queue with a start/stop
// lifecycle. Tests instantiate an isolated instance over a temp database.
type Queue struct {
	store    JobStore
	workers  int
	handlers map[models.JobKind]Handler

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New creates a queue with the given worker count. Handlers must be
// registered before Start.
func New(store JobStore, workers int) *Queue {
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		store:    store,
		workers:  workers,
		handlers: make(map[models.JobKind]Handler),
		stop:     make(chan struct{}),
	}
}

// Enqueue appends a job of the given kind and returns its id immediately,
// without waiting for execution. Retry policy: up to QueueMaxAttempts
// attempts with exponential backoff from QueueBackoffBase — applied only to
// transient failures.
func (q *Queue) Enqueue(kind models.JobKind, payload interface{}) (string, error) {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return "", fmt.Errorf("enqueue %s: %w", kind, config.ErrQueueClosed)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: marshal payload: %w", kind, err)
	}

	job := &models.Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		Payload:     data,
		MaxAttempts: config.QueueMaxAttempts,
	}

	if err := q.store.InsertJob(job); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", kind, err)
	}

	return job.ID, nil
}

// Status returns the job's current state and, when terminal, its result or
// error. Unknown ids surface config.ErrJobNotFound.
func (q *Queue) Status(jobID string) (*models.Job, error) {
	return q.store.GetJob(jobID)
}

// RedactResult blanks a job's stored result. Used for results that may leave
// the process at most once.
func (q *Queue) RedactResult(jobID string) error {
	return q.store.ClearJobResult(jobID)
}
