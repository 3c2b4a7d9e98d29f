package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

// GetJobStatus handles GET /api/jobs/{jobID} — the polling endpoint for
// asynchronous generation. The job carries its result once completed and the
// recorded error once permanently failed.
func GetJobStatus(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		if jobID == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "jobID is required")
			return
		}

		job, err := deps.Queue.Status(jobID)
		if err != nil {
			writeCoreError(w, err)
			return
		}

		// The mnemonic is delivered at most once: the stored result is blanked
		// before the first completed read is answered, so no later read can
		// carry it.
		if job.State == models.JobStateCompleted &&
			job.Kind == models.JobKindMnemonicGeneration &&
			len(job.Result) > 0 {
			if err := deps.Queue.RedactResult(job.ID); err != nil {
				slog.Error("failed to redact job result", "jobId", job.ID, "error", err)
			}
		}

		writeJSON(w, http.StatusOK, models.APIResponse{Data: job})
	}
}
