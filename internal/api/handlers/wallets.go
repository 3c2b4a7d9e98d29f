package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/custodia/walletd/internal/api/middleware"
	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
	"github.com/custodia/walletd/internal/queue"
	"github.com/custodia/walletd/internal/signing"
	"github.com/custodia/walletd/internal/wallet"
)

// UserStore is the user-registration subset of the store used by the dev
// user endpoint.
type UserStore interface {
	CreateUser(userID string) error
}

// Deps holds all dependencies needed by the API handlers.
type Deps struct {
	Queue      *queue.Queue
	Generation *wallet.Service
	Signing    *signing.Facade
	Users      UserStore
}

// CreateUser handles POST /api/users — registers a user row so wallets can
// be anchored to it. Stands in for the external user collaborator.
func CreateUser(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		if r.Body != nil {
			// An empty body is fine; an id is generated.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		if err := deps.Users.CreateUser(req.ID); err != nil {
			writeCoreError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, models.APIResponse{
			Data: models.AuthenticatedUser{ID: req.ID},
		})
	}
}

// EnqueueWalletGeneration handles POST /api/wallets — queues a
// mnemonic-generation job for the caller and returns the job id immediately.
func EnqueueWalletGeneration(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, config.ErrorUnauthorized, "missing caller identity")
			return
		}

		jobID, err := deps.Queue.Enqueue(models.JobKindMnemonicGeneration, models.MnemonicJobPayload{
			UserID: user.ID,
		})
		if err != nil {
			slog.Error("failed to enqueue wallet generation", "userId", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, config.ErrorQueue, "failed to enqueue wallet generation")
			return
		}

		slog.Info("wallet generation enqueued", "userId", user.ID, "jobId", jobID)

		writeJSON(w, http.StatusAccepted, models.APIResponse{
			Data: models.EnqueuedResponse{JobID: jobID},
		})
	}
}

// EnqueueAccountGeneration handles POST /api/wallets/{walletID}/accounts —
// queues an account-generation job. Ownership of the wallet is enforced by
// the generation service when the job runs.
func EnqueueAccountGeneration(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, config.ErrorUnauthorized, "missing caller identity")
			return
		}

		walletID := chi.URLParam(r, "walletID")
		if walletID == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "walletID is required")
			return
		}

		var req models.CreateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}

		jobID, err := deps.Queue.Enqueue(models.JobKindAccountGeneration, models.AccountJobPayload{
			UserID:   user.ID,
			WalletID: walletID,
			Name:     req.Name,
		})
		if err != nil {
			slog.Error("failed to enqueue account generation",
				"userId", user.ID,
				"walletId", walletID,
				"error", err,
			)
			writeError(w, http.StatusInternalServerError, config.ErrorQueue, "failed to enqueue account generation")
			return
		}

		slog.Info("account generation enqueued",
			"userId", user.ID,
			"walletId", walletID,
			"jobId", jobID,
		)

		writeJSON(w, http.StatusAccepted, models.APIResponse{
			Data: models.EnqueuedResponse{JobID: jobID},
		})
	}
}

// GetWallet handles GET /api/wallet — the read-only projection of the
// caller's wallet and its accounts. Never includes ciphertext or iv.
func GetWallet(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, config.ErrorUnauthorized, "missing caller identity")
			return
		}

		view, err := deps.Generation.WalletProjection(r.Context(), user)
		if err != nil {
			writeCoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: view,
			Meta: &models.APIMeta{ExecutionTime: time.Since(start).Milliseconds()},
		})
	}
}
