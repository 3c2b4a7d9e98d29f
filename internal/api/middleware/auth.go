package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/custodia/walletd/internal/config"
	"github.com/custodia/walletd/internal/models"
)

type contextKey string

const userKey contextKey = "authenticatedUser"

// Authenticate resolves the caller from the X-User-ID header into an explicit
// AuthenticatedUser value. Session/token verification is the job of the
// upstream gateway; this middleware is only the seam where the verified
// identity enters the process. Requests without an identity are rejected.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.APIError{
				Error: models.APIErrorDetail{
					Code:    config.ErrorUnauthorized,
					Message: "missing X-User-ID header",
				},
			})
			return
		}

		ctx := context.WithValue(r.Context(), userKey, models.AuthenticatedUser{ID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserFrom extracts the authenticated caller placed by Authenticate.
func UserFrom(ctx context.Context) (models.AuthenticatedUser, bool) {
	u, ok := ctx.Value(userKey).(models.AuthenticatedUser)
	return u, ok
}
