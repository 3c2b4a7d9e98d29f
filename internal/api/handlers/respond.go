package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.APIError{
		Error: models.APIErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeCoreError maps a typed core failure to its HTTP representation.
// Cryptographic failures deliberately surface a generic message — no key
// material or plaintext detail leaves the process.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, config.ErrUserNotFound):
		writeError(w, http.StatusNotFound, config.ErrorUserNotFound, "user not found")
	case errors.Is(err, config.ErrWalletNotFound):
		writeError(w, http.StatusNotFound, config.ErrorWalletNotFound, "wallet not found")
	case errors.Is(err, config.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, config.ErrorAccountNotFound, "account not found")
	case errors.Is(err, config.ErrJobNotFound):
		writeError(w, http.StatusNotFound, config.ErrorJobNotFound, "job not found")
	case errors.Is(err, config.ErrUnauthorizedWalletAccess):
		writeError(w, http.StatusForbidden, config.ErrorUnauthorized, "wallet does not belong to caller")
	case errors.Is(err, config.ErrWalletExists):
		writeError(w, http.StatusConflict, config.ErrorWalletExists, "wallet already exists for user")
	case errors.Is(err, config.ErrUserExists):
		writeError(w, http.StatusConflict, config.ErrorUserExists, "user already exists")
	case errors.Is(err, config.ErrInvalidMnemonic):
		writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest, "invalid mnemonic")
	case errors.Is(err, config.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, config.ErrorUpstreamTimeout, "upstream request timed out")
	case errors.Is(err, config.ErrDecryption):
		writeError(w, http.StatusInternalServerError, config.ErrorDecryption, "decryption failed")
	case errors.Is(err, config.ErrKeyDerivation):
		writeError(w, http.StatusInternalServerError, config.ErrorKeyDerivation, "key derivation failed")
	default:
		writeError(w, http.StatusInternalServerError, config.ErrorInternal, "internal error")
	}
}
