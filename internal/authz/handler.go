package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nixcon/nixcon/internal/platform/httpx"
)

// Handler exposes the decision endpoint and the matrix for the admin UI.
type Handler struct {
	logger    *slog.Logger
	guard     Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, guard Guard) *Handler {
	return &Handler{logger: logger, guard: guard, validator: validator.New()}
}

// MountCheck registers POST /check on r.
func (h *Handler) MountCheck(r chi.Router) {
	r.Post("/check", h.check)
}

// MountRoutes registers the matrix listing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireModuleAccess(ModuleUsuarios, AccessRead))
		r.Get("/matrix", h.matrix)
	})
}

type checkRequest struct {
	Role      Role         `json:"role" validate:"required"`
	Module    *Module      `json:"module" validate:"required"`
	Level     *AccessLevel `json:"level" validate:"required"`
	Overrides Overrides    `json:"overrides,omitempty"`
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		detail := "corpo da requisição inválido"
		if errors.Is(err, ErrUnknownRole) || errors.Is(err, ErrUnknownModule) || errors.Is(err, ErrUnknownAccessLevel) {
			detail = err.Error()
		}
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", detail)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	allowed := h.guard.matrix().HasModuleAccess(req.Role, *req.Module, *req.Level, req.Overrides)
	httpx.JSON(w, http.StatusOK, checkResponse{Allowed: allowed})
}

func (h *Handler) matrix(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{
		"levels": accessLevelNames,
		"matrix": h.guard.matrix().Table(),
	})
}
