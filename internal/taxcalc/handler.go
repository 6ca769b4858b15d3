package taxcalc

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/platform/validation"
)

// Handler serves /api/calculadora.
type Handler struct {
	logger    *slog.Logger
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, guard authz.Guard) *Handler {
	return &Handler{logger: logger, guard: guard, validator: validation.New()}
}

// MountRoutes registers POST /simular.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireModuleAccess(authz.ModuleCalculadoraTributaria, authz.AccessRead)).Post("/simular", h.simulate)
}

func (h *Handler) simulate(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "corpo da requisição inválido")
		return
	}
	if err := h.validator.Struct(in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	res, err := Simulate(in)
	switch {
	case errors.Is(err, ErrAboveSimplesLimit):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", "faturamento acima do limite do Simples Nacional")
	case errors.Is(err, ErrProfitRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "profit: required")
	case err != nil:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.JSON(w, http.StatusOK, res)
	}
}
