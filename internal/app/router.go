package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parley-chat/parley/internal/accounts"
	"github.com/parley-chat/parley/internal/applications"
	"github.com/parley-chat/parley/internal/auth"
	"github.com/parley-chat/parley/internal/companies"
	"github.com/parley-chat/parley/internal/contacts"
	"github.com/parley-chat/parley/internal/conversations"
	"github.com/parley-chat/parley/internal/observability"
	"github.com/parley-chat/parley/internal/webhooks"
	"github.com/parley-chat/parley/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger               *slog.Logger
	Config               *Config
	AuthHandler          *auth.Handler
	AuthMiddleware       *auth.Middleware
	AccountsHandler      *accounts.Handler
	ApplicationsHandler  *applications.Handler
	CompaniesHandler     *companies.Handler
	ContactsHandler      *contacts.Handler
	ConversationsHandler *conversations.Handler
	WebhooksHandler      *webhooks.Handler
	JobsHandler          *jobs.Handler
	Pool                 *pgxpool.Pool
	Metrics              *observability.Metrics
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				params.Logger.Error("readiness ping", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Routes reachable without a bearer token.
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.AuthMiddleware.RequireToken)
				params.AuthHandler.MountProtectedRoutes(r)
			})
		})
		r.Route("/applications", func(r chi.Router) {
			params.ApplicationsHandler.MountPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(params.AuthMiddleware.RequireToken)
				params.ApplicationsHandler.MountRoutes(r)
			})
		})

		// Everything below requires an authenticated caller.
		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireToken)
			r.Route("/accounts", params.AccountsHandler.MountRoutes)
			r.Route("/companies", params.CompaniesHandler.MountRoutes)
			r.Route("/conversations", params.ConversationsHandler.MountRoutes)
			r.Route("/contacts", params.ContactsHandler.MountRoutes)
			r.Route("/webhooks", params.WebhooksHandler.MountRoutes)
			if params.JobsHandler != nil {
				r.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	return r
}
