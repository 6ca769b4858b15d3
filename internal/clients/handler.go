package clients

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

// Handler serves /api/empresas/{empresaID}/clientes. The tenant check is
// applied by the enclosing company route.
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

// MountRoutes registers /clientes below a company route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/clientes", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireModuleAccess(authz.ModuleClientes, authz.AccessRead))
			r.Get("/", h.list)
			r.Get("/{clientID}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireModuleAccess(authz.ModuleClientes, authz.AccessWrite))
			r.Post("/", h.create)
			r.Put("/{clientID}", h.update)
			r.Delete("/{clientID}", h.delete)
		})
	})
}

type listResponse struct {
	Data       []Client          `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	q := r.URL.Query()
	page, perPage := shared.PageParams(q)
	filter := ListFilter{Search: strings.TrimSpace(q.Get("q")), Limit: perPage, Offset: (page - 1) * perPage}
	items, total, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		h.fail(w, "list clients", err)
		return
	}
	if items == nil {
		items = []Client{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, "get client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.service.Create(r.Context(), companyID, req)
	if err != nil {
		h.fail(w, "create client", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	c, err := h.service.Update(r.Context(), companyID, id, req)
	if err != nil {
		h.fail(w, "update client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, "delete client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (ClientRequest, bool) {
	var req ClientRequest
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "cliente não encontrado")
	case errors.Is(err, ErrDuplicateDocument):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "documento já cadastrado para esta empresa")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}

func ids(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	id, err := httpx.IDParam(r, "clientID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador de cliente inválido")
		return 0, 0, false
	}
	return companyID, id, true
}
