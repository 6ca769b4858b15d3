package tasks

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/platform/validation"
	"github.com/nixcon/nixcon/internal/shared"
)

// Handler serves /api/empresas/{empresaID}/tarefas.
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

// MountRoutes registers /tarefas below a company route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/tarefas", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireModuleAccess(authz.ModuleTarefas, authz.AccessRead))
			r.Get("/", h.list)
			r.Get("/{taskID}", h.get)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.RequireModuleAccess(authz.ModuleTarefas, authz.AccessWrite))
			r.Post("/", h.create)
			r.Put("/{taskID}", h.update)
			r.Post("/{taskID}/concluir", h.complete)
			r.Delete("/{taskID}", h.delete)
		})
	})
}

type listResponse struct {
	Data       []Task            `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	q := r.URL.Query()
	page, perPage := shared.PageParams(q)
	filter := ListFilter{Limit: perPage, Offset: (page - 1) * perPage}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		filter.Status = &status
	}
	items, total, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		h.fail(w, "list tasks", err)
		return
	}
	if items == nil {
		items = []Task{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: shared.NewPagination(page, perPage, total)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, "get task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	t, err := h.service.Create(r.Context(), authz.PrincipalFromContext(r.Context()), companyID, req)
	if err != nil {
		h.fail(w, "create task", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
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
	t, err := h.service.Update(r.Context(), companyID, id, req)
	if err != nil {
		h.fail(w, "update task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	t, err := h.service.Complete(r.Context(), companyID, id)
	if err != nil {
		h.fail(w, "complete task", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	companyID, id, ok := ids(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), companyID, id); err != nil {
		h.fail(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (TaskRequest, bool) {
	var req TaskRequest
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
		httpx.Problem(w, http.StatusNotFound, "Not Found", "tarefa não encontrada")
	case errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status: oneof")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}

func ids(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	companyID, _ := httpx.IDParam(r, "empresaID")
	id, err := httpx.IDParam(r, "taskID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador de tarefa inválido")
		return 0, 0, false
	}
	return companyID, id, true
}
