package documents

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/platform/validation"
	"github.com/nixcon/nixcon/internal/shared"
)

// Handler serves /api/empresas/{empresaID}/documentos.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validation.New()}
}

// MountRoutes registers /documentos below a company route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/documentos", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireModuleAccess(authz.ModuleDocumentos, authz.AccessRead))
			r.Get("/", h.list)
			r.Get("/{documentID}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireModuleAccess(authz.ModuleDocumentos, authz.AccessWrite))
			r.Post("/", h.register)
			r.Delete("/{documentID}", h.delete)
		})
	})
}

type listResponse struct {
	Data       []Document        `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	q := r.URL.Query()
	page, perPage := shared.PageParams(q)
	filter := ListFilter{Limit: perPage, Offset: (page - 1) * perPage}
	if raw := q.Get("category"); raw != "" {
		category := Category(raw)
		filter.Category = &category
	}
	items, total, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		h.fail(w, "list documents", err)
		return
	}
	if items == nil {
		items = []Document{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, "get document", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "corpo da requisição inválido")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}
	d, err := h.service.Register(r.Context(), authz.PrincipalFromContext(r.Context()), companyID, req)
	if err != nil {
		h.fail(w, "register document", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "documento não encontrado")
	case errors.Is(err, ErrInvalidCategory):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "category: oneof")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}

func ids(w http.ResponseWriter, r *http.Request) (int64, uuid.UUID, bool) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	id, err := uuid.Parse(chi.URLParam(r, "documentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador de documento inválido")
		return 0, uuid.Nil, false
	}
	return companyID, id, true
}
