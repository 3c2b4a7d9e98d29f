// Package api wires the HTTP surface. Routing, auth verification, and the
// dashboard are thin collaborators around the wallet core.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/custodia/walletd/internal/api/handlers"
	"github.com/custodia/walletd/internal/api/middleware"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogging)

	slog.Info("router initialized", "middleware", []string{"requestLogging", "authenticate"})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(Version))
		r.Post("/users", handlers.CreateUser(deps))

		// Everything below requires a resolved caller identity.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate)

			r.Post("/wallets", handlers.EnqueueWalletGeneration(deps))
			r.Post("/wallets/{walletID}/accounts", handlers.EnqueueAccountGeneration(deps))
			r.Get("/wallet", handlers.GetWallet(deps))
			r.Get("/jobs/{jobID}", handlers.GetJobStatus(deps))

			r.Post("/sign", handlers.SignMessage(deps))
			r.Post("/send", handlers.SendTransaction(deps))
			r.Get("/accounts/{index}/balance", handlers.GetBalance(deps))
		})
	})

	return r
}
