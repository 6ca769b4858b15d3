package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/nixcon/nixcon/internal/acting"
	"github.com/nixcon/nixcon/internal/audit"
	"github.com/nixcon/nixcon/internal/auth"
	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/clients"
	"github.com/nixcon/nixcon/internal/companies"
	"github.com/nixcon/nixcon/internal/dashboard"
	"github.com/nixcon/nixcon/internal/documents"
	"github.com/nixcon/nixcon/internal/observability"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/shared"
	"github.com/nixcon/nixcon/internal/tasks"
	"github.com/nixcon/nixcon/internal/taxcalc"
	"github.com/nixcon/nixcon/internal/users"
	"github.com/nixcon/nixcon/jobs"
)

// ReadinessCheck pings one backing service for /readyz.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router. Nil
// handlers are not mounted.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Principals     *auth.PrincipalResolver
	Metrics        *observability.Metrics
	Readiness      []ReadinessCheck

	AuthHandler      *auth.Handler
	AuthzHandler     *authz.Handler
	ActingHandler    *acting.Handler
	UsersHandler     *users.Handler
	CompaniesHandler *companies.Handler
	ClientsHandler   *clients.Handler
	TasksHandler     *tasks.Handler
	DocumentsHandler *documents.Handler
	DashboardHandler *dashboard.Handler
	TaxHandler       *taxcalc.Handler
	AuditHandler     *audit.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with NIXCON defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Principals:     params.Principals,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.AuthzHandler != nil {
		r.Route("/authz", params.AuthzHandler.MountCheck)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			params.AuthHandler.MountMe(r)
		}
		if params.AuthzHandler != nil {
			r.Route("/permissions", params.AuthzHandler.MountRoutes)
		}
		if params.ActingHandler != nil {
			r.Route("/context", params.ActingHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.CompaniesHandler != nil {
			var scoped []func(chi.Router)
			if params.ClientsHandler != nil {
				scoped = append(scoped, params.ClientsHandler.MountRoutes)
			}
			if params.TasksHandler != nil {
				scoped = append(scoped, params.TasksHandler.MountRoutes)
			}
			if params.DocumentsHandler != nil {
				scoped = append(scoped, params.DocumentsHandler.MountRoutes)
			}
			if params.DashboardHandler != nil {
				scoped = append(scoped, params.DashboardHandler.MountRoutes)
			}
			r.Route("/empresas", func(r chi.Router) {
				params.CompaniesHandler.MountRoutes(r, scoped...)
			})
		}
		if params.TaxHandler != nil {
			r.Route("/calculadora", params.TaxHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/auditoria", params.AuditHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "recurso não encontrado")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	return r
}

func readinessHandler(logger *slog.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("check", check.Name), slog.Any("error", err))
				results[check.Name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			results[check.Name] = "up"
		}
		state := "ready"
		if status != http.StatusOK {
			state = "unavailable"
		}
		httpx.JSON(w, status, map[string]any{"status": state, "checks": results})
	}
}
