// Package http assembles the service router.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kyc-gateway/internal/kyc"
	"kyc-gateway/internal/platform/middleware"
)

// HealthChecker reports dependency health for the readiness endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router needs.
type Deps struct {
	Handler   *kyc.Handler
	Validator *middleware.JWTValidator
	Logger    *slog.Logger

	// Checks run on /readyz; a failing check returns 503.
	Checks map[string]HealthChecker
}

// New builds the service router. Verification routes sit behind bearer auth;
// health and metrics endpoints stay open.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		for name, check := range deps.Checks {
			if err := check.Health(req.Context()); err != nil {
				deps.Logger.WarnContext(req.Context(), "readiness check failed",
					"check", name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + " unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Handler.Register(r)
	})

	return r
}
