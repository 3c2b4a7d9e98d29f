package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

// Handler executes one job kind. The returned bytes are recorded as the job
// result; a returned error fails the attempt. Wrap errors with
// config.NewTransientError to request a retry — anything else (authorization,
// validation, cryptographic failure) fails the job immediately, since
// retrying with the same inputs reproduces the same error.
type Handler func(ctx context.Context, payload json.RawMessage) ([]byte, error)

// Register binds a handler to a job kind. Must be called before Start.
func (q *Queue) Register(kind models.JobKind, h Handler) {
	q.handlers[kind] = h
}

// Start launches the worker pool. Jobs left active by a crashed run are
// requeued first, then workers poll the store for due jobs and execute them
// until Close is called.
func (q *Queue) Start(ctx context.Context) {
	if n, err := q.store.ReclaimActiveJobs(); err != nil {
		slog.Error("reclaim of orphaned jobs failed", "error", err)
	} else if n > 0 {
		slog.Info("orphaned jobs requeued", "count", n)
	}

	slog.Info("job queue starting", "workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker(ctx, i)
	}
}

// Close stops the workers and waits for in-flight jobs to finish. The queue
// instance is spent after Close; already enqueued jobs stay durable and are
// picked up when a fresh instance starts over the same store.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.stop)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("job queue stopped")
	case <-time.After(config.WorkerDrainTimeout):
		slog.Warn("job queue drain timeout, abandoning wait")
	}
}

func (q *Queue) runWorker(ctx context.Context, id int) {
	defer q.wg.Done()

	slog.Debug("worker started", "worker", id)

	ticker := time.NewTicker(config.QueuePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("worker stopping on context", "worker", id)
			return
		case <-q.stop:
			slog.Debug("worker stopping on close", "worker", id)
			return
		case <-ticker.C:
		}

		// Drain all due jobs before going back to sleep.
		for {
			job, err := q.store.ClaimNextJob()
			if err != nil {
				slog.Error("claim job failed", "worker", id, "error", err)
				break
			}
			if job == nil {
				break
			}

			q.execute(ctx, id, job)

			select {
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			default:
			}
		}
	}
}

// execute runs one claimed job and records its terminal or retry state.
func (q *Queue) execute(ctx context.Context, workerID int, job *models.Job) {
	start := time.Now()

	handler, ok := q.handlers[job.Kind]
	if !ok {
		q.recordFailure(job, fmt.Sprintf("no handler registered for kind %q", job.Kind))
		return
	}

	slog.Info("job processing",
		"worker", workerID,
		"jobId", job.ID,
		"kind", job.Kind,
		"attempt", job.Attempts,
	)

	result, err := handler(ctx, job.Payload)
	if err == nil {
		if cerr := q.store.CompleteJob(job.ID, result); cerr != nil {
			slog.Error("record job completion failed", "jobId", job.ID, "error", cerr)
		}
		slog.Info("job done",
			"worker", workerID,
			"jobId", job.ID,
			"kind", job.Kind,
			"duration", time.Since(start).Round(time.Millisecond),
		)
		return
	}

	if !config.IsTransient(err) {
		// Fatal for this job: auth, validation, crypto. The generic backoff
		// cannot help, so don't burn the remaining attempts.
		q.recordFailure(job, err.Error())
		return
	}

	if job.Attempts >= job.MaxAttempts {
		q.recordFailure(job, fmt.Sprintf("retries exhausted after %d attempts: %s", job.Attempts, err))
		return
	}

	delay := retryDelay(job.Attempts, config.GetRetryAfter(err))
	if rerr := q.store.RequeueJob(job.ID, err.Error(), time.Now().Add(delay)); rerr != nil {
		slog.Error("requeue job failed", "jobId", job.ID, "error", rerr)
		return
	}

	slog.Warn("job attempt failed, retry scheduled",
		"worker", workerID,
		"jobId", job.ID,
		"kind", job.Kind,
		"attempt", job.Attempts,
		"maxAttempts", job.MaxAttempts,
		"delay", delay,
		"error", err,
	)
}

func (q *Queue) recordFailure(job *models.Job, msg string) {
	if err := q.store.FailJob(job.ID, msg); err != nil {
		slog.Error("record job failure failed", "jobId", job.ID, "error", err)
	}
}

// retryDelay computes exponential backoff: base * 2^(attempt-1), capped.
// An explicit retry-after on the error wins.
func retryDelay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := config.QueueBackoffBase * time.Duration(1<<uint(attempt-1))
	if delay > config.QueueBackoffMax {
		delay = config.QueueBackoffMax
	}
	return delay
}
