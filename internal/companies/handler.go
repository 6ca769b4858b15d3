package companies

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/platform/validation"
	"github.com/nixcon/nixcon/internal/shared"
)

// Handler serves the company API.
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

// MountRoutes registers the collection and the /{empresaID} item routes.
// scoped mounts company-owned resources below the item, behind the same
// tenant check.
func (h *Handler) MountRoutes(r chi.Router, scoped ...func(chi.Router)) {
	r.With(h.guard.RequireModuleAccess(authz.ModuleEmpresas, authz.AccessRead)).Get("/", h.list)
	r.With(h.guard.RequireEscritorio, h.guard.RequireModuleAccess(authz.ModuleEmpresas, authz.AccessWrite)).Post("/", h.create)

	r.Route("/{empresaID}", func(r chi.Router) {
		r.Use(h.guard.RequireEmpresaContext("empresaID"))
		r.With(h.guard.RequireModuleAccess(authz.ModuleEmpresas, authz.AccessRead)).Get("/", h.get)
		r.With(h.guard.RequireModuleAccess(authz.ModuleEmpresas, authz.AccessWrite)).Put("/", h.update)
		r.With(h.guard.RequireModuleAccess(authz.ModuleEmpresas, authz.AccessAdmin)).Delete("/", h.delete)
		for _, mount := range scoped {
			mount(r)
		}
	})
}

type listResponse struct {
	Data       []Company         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, perPage := shared.PageParams(q)
	filters := ListFilters{
		Page:    page,
		Limit:   perPage,
		Search:  strings.TrimSpace(q.Get("q")),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
	}
	switch q.Get("active") {
	case "true":
		active := true
		filters.IsActive = &active
	case "false":
		active := false
		filters.IsActive = &active
	}
	companies, total, err := h.service.List(r.Context(), authz.PrincipalFromContext(r.Context()), filters)
	if err != nil {
		h.fail(w, "list companies", err)
		return
	}
	if companies == nil {
		companies = []Company{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: companies, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.IDParam(r, "empresaID")
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	company, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create company", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.IDParam(r, "empresaID")
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	company, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update company", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.IDParam(r, "empresaID")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (CompanyRequest, bool) {
	var req CompanyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "corpo da requisição inválido")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return req, false
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "empresa não encontrada")
	case errors.Is(err, ErrDuplicateCNPJ):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "CNPJ já cadastrado")
	case errors.Is(err, ErrInvalidCNPJ):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cnpj: cnpj")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
