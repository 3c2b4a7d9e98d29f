package handlers

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/custodia/walletd/internal/api/middleware"
	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

// SignMessage handles POST /api/sign — synchronous: the signature must come
// back in the same request.
func SignMessage(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, config.ErrorUnauthorized, "missing caller identity")
			return
		}

		var req models.SignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "message is required")
			return
		}

		sig, err := deps.Signing.Sign(r.Context(), user, req.Index, req.Message)
		if err != nil {
			writeCoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: map[string]string{"signature": sig},
		})
	}
}

// SendTransaction handles POST /api/send.
func SendTransaction(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, config.ErrorUnauthorized, "missing caller identity")
			return
		}

		var req models.SendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid request body")
			return
		}
		if req.To == "" {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "to address is required")
			return
		}

		value, ok2 := new(big.Int).SetString(req.ValueWei, 10)
		if !ok2 || value.Sign() < 0 {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "valueWei must be a non-negative decimal string")
			return
		}

		txHash, err := deps.Signing.SendTransaction(r.Context(), user, req.Index, req.To, value)
		if err != nil {
			writeCoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: map[string]string{"txHash": txHash},
		})
	}
}

// GetBalance handles GET /api/accounts/{index}/balance.
func GetBalance(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := middleware.UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, config.ErrorUnauthorized, "missing caller identity")
			return
		}

		indexParam := chi.URLParam(r, "index")
		index, err := strconv.ParseUint(indexParam, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "index must be a non-negative integer")
			return
		}

		balance, err := deps.Signing.GetBalance(r.Context(), user, uint32(index))
		if err != nil {
			writeCoreError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, models.APIResponse{
			Data: map[string]string{"balance": balance.String()},
		})
	}
}
