package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/shared"
)

// Handler serves /api/empresas/{empresaID}/dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Guard
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers /dashboard below a company route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireModuleAccess(authz.ModuleDashboard, authz.AccessRead)).Get("/dashboard", h.summary)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	sum, err := h.service.Summary(r.Context(), companyID)
	if err != nil {
		h.logger.Error("dashboard summary", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}
