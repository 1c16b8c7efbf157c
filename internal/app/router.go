package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/auth"
	"github.com/cogivn/iwas/internal/locations"
	"github.com/cogivn/iwas/internal/observability"
	"github.com/cogivn/iwas/internal/packages"
	"github.com/cogivn/iwas/internal/shared"
	"github.com/cogivn/iwas/internal/tenants"
	"github.com/cogivn/iwas/internal/users"
	"github.com/cogivn/iwas/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	TenantsHandler   *tenants.Handler
	UsersHandler     *users.Handler
	LocationsHandler *locations.Handler
	PackagesHandler  *packages.Handler
	JobsHandler      *jobs.Handler

	AccessGuard access.Middleware
	Metrics     *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// A fresh session needs the CSRF token before its first mutation.
	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(r.Context(), sess)
		if err != nil {
			params.Logger.Error("issue csrf token", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"csrf_token":"` + token + `"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.TenantsHandler != nil {
		r.Route("/tenants", params.TenantsHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.LocationsHandler != nil {
		r.Route("/locations", params.LocationsHandler.MountRoutes)
	}
	if params.PackagesHandler != nil {
		r.Route("/packages", params.PackagesHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.AccessGuard.RequireAdmin())
			params.JobsHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
