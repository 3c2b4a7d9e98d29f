package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

const jobColumns = "id, kind, state, payload, result, error, attempts, max_attempts, run_after, created_at, updated_at"

// InsertJob persists a new queued job.
func (d *DB) InsertJob(job *models.Job) error {
	_, err := d.conn.Exec(
		"INSERT INTO jobs (id, kind, state, payload, max_attempts, run_after) VALUES (?, ?, ?, ?, ?, ?)",
		job.ID, string(job.Kind), string(models.JobStateQueued), string(job.Payload), job.MaxAttempts, nowStamp(),
	)
	if err != nil {
		if isBusy(err) {
			return config.NewTransientError(fmt.Errorf("insert job %q: %w", job.ID, err))
		}
		return fmt.Errorf("insert job %q: %w", job.ID, err)
	}

	slog.Info("job enqueued", "jobId", job.ID, "kind", job.Kind)
	return nil
}

// ClaimNextJob atomically moves the oldest due queued job to active and
// returns it. The guarded update ensures at most one worker claims a given
// job even when several poll simultaneously. Returns (nil, nil) when no job
// is due.
func (d *DB) ClaimNextJob() (*models.Job, error) {
	now := nowStamp()

	var jobID string
	err := d.conn.QueryRow(
		"SELECT id FROM jobs WHERE state = ? AND run_after <= ? ORDER BY created_at LIMIT 1",
		string(models.JobStateQueued), now,
	).Scan(&jobID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: select: %w", err)
	}

	res, err := d.conn.Exec(
		"UPDATE jobs SET state = ?, attempts = attempts + 1, updated_at = datetime('now') WHERE id = ? AND state = ?",
		string(models.JobStateActive), jobID, string(models.JobStateQueued),
	)
	if err != nil {
		if isBusy(err) {
			return nil, config.NewTransientError(fmt.Errorf("claim job %q: %w", jobID, err))
		}
		return nil, fmt.Errorf("claim job %q: %w", jobID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim job %q: rows affected: %w", jobID, err)
	}
	if affected == 0 {
		// Another worker got there first.
		return nil, nil
	}

	return d.GetJob(jobID)
}

// ReclaimActiveJobs moves every active job back to queued, due immediately.
// Workers always record a terminal or retry state, so an active row can only
// be left behind by a process that died mid-execution; reclaiming on startup
// lets the new worker pool re-run those jobs instead of orphaning them.
func (d *DB) ReclaimActiveJobs() (int64, error) {
	res, err := d.conn.Exec(
		"UPDATE jobs SET state = ?, run_after = ?, updated_at = datetime('now') WHERE state = ?",
		string(models.JobStateQueued), nowStamp(), string(models.JobStateActive),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim active jobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim active jobs: rows affected: %w", err)
	}
	if n > 0 {
		slog.Warn("reclaimed jobs orphaned by a previous run", "count", n)
	}
	return n, nil
}

// GetJob returns a job by id.
func (d *DB) GetJob(jobID string) (*models.Job, error) {
	var j models.Job
	var kind, state, payload string
	var result sql.NullString

	err := d.conn.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE id = ?", jobID).Scan(
		&j.ID, &kind, &state, &payload, &result, &j.Error,
		&j.Attempts, &j.MaxAttempts, &j.RunAfter, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %q: %w", jobID, config.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", jobID, err)
	}

	j.Kind = models.JobKind(kind)
	j.State = models.JobState(state)
	j.Payload = []byte(payload)
	if result.Valid {
		j.Result = []byte(result.String)
	}

	return &j, nil
}

// CompleteJob records a successful result and moves the job to its terminal
// completed state.
func (d *DB) CompleteJob(jobID string, result []byte) error {
	_, err := d.conn.Exec(
		"UPDATE jobs SET state = ?, result = ?, error = '', updated_at = datetime('now') WHERE id = ?",
		string(models.JobStateCompleted), string(result), jobID,
	)
	if err != nil {
		return fmt.Errorf("complete job %q: %w", jobID, err)
	}

	slog.Info("job completed", "jobId", jobID)
	return nil
}

// ClearJobResult removes a job's stored result, leaving its state intact.
func (d *DB) ClearJobResult(jobID string) error {
	_, err := d.conn.Exec(
		"UPDATE jobs SET result = NULL, updated_at = datetime('now') WHERE id = ?",
		jobID,
	)
	if err != nil {
		return fmt.Errorf("clear job result %q: %w", jobID, err)
	}

	slog.Info("job result cleared", "jobId", jobID)
	return nil
}

// FailJob marks a job permanently failed.
func (d *DB) FailJob(jobID, errMsg string) error {
	_, err := d.conn.Exec(
		"UPDATE jobs SET state = ?, error = ?, updated_at = datetime('now') WHERE id = ?",
		string(models.JobStateFailed), errMsg, jobID,
	)
	if err != nil {
		return fmt.Errorf("fail job %q: %w", jobID, err)
	}

	slog.Warn("job failed permanently", "jobId", jobID, "error", errMsg)
	return nil
}

// RequeueJob schedules a retry: the job goes back to queued with a run_after
// in the future and the error recorded for observability.
func (d *DB) RequeueJob(jobID, errMsg string, runAfter time.Time) error {
	_, err := d.conn.Exec(
		"UPDATE jobs SET state = ?, error = ?, run_after = ?, updated_at = datetime('now') WHERE id = ?",
		string(models.JobStateQueued), errMsg, stampAt(runAfter), jobID,
	)
	if err != nil {
		return fmt.Errorf("requeue job %q: %w", jobID, err)
	}

	slog.Info("job requeued for retry", "jobId", jobID, "runAfter", stampAt(runAfter), "error", errMsg)
	return nil
}
