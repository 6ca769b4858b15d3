package acting

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nixcon/nixcon/internal/auth"
	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/shared"
)

// Handler serves /api/context.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   authz.Guard
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers the context routes. Reading is open to every
// authenticated role; switching is reserved to office staff.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireEscritorio)
		r.Put("/", h.put)
		r.Delete("/", h.reset)
	})
}

type contextResponse struct {
	Acting             authz.ActingContext `json:"acting"`
	DefaultMode        authz.ViewMode      `json:"default_mode"`
	EffectiveCompanyID int64               `json:"effective_company_id,omitempty"`
	CanSwitch          bool                `json:"can_switch"`
}

func view(p *authz.Principal) contextResponse {
	return contextResponse{
		Acting:             p.Acting,
		DefaultMode:        authz.DefaultViewMode(p.Role),
		EffectiveCompanyID: p.EffectiveCompanyID(),
		CanSwitch:          p.IsStaff(),
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())
	if p == nil {
		authz.WriteRejection(w, authz.Unauthenticated("autenticação necessária"))
		return
	}
	httpx.JSON(w, http.StatusOK, view(p))
}

type switchRequest struct {
	ViewMode  authz.ViewMode `json:"view_mode"`
	CompanyID int64          `json:"company_id"`
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req switchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "corpo da requisição inválido")
		return
	}
	p := authz.PrincipalFromContext(r.Context())
	acting, err := h.service.Switch(r.Context(), p, req.ViewMode, req.CompanyID)
	if err != nil {
		h.fail(w, err)
		return
	}
	sess.SetActing(string(acting.Mode), acting.CompanyID)
	h.logger.Info("acting context switched",
		slog.Int64("user_id", p.UserID),
		slog.String("view_mode", string(acting.Mode)),
		slog.Int64("company_id", acting.CompanyID))

	next := *p
	next.Acting = acting
	httpx.JSON(w, http.StatusOK, view(&next))
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.ClearActing()
	p := *authz.PrincipalFromContext(r.Context())
	p.Acting = auth.DefaultActing(p.Role, p.CompanyID)
	httpx.JSON(w, http.StatusOK, view(&p))
}

// session returns the cookie session. Bearer clients are stateless, so a
// switch would not survive the request.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*shared.Session, bool) {
	sess := shared.SessionFromContext(r.Context())
	if _, bearer := auth.BearerToken(r); bearer || sess == nil {
		httpx.Problem(w, http.StatusConflict, "Conflict", "contexto de atuação exige sessão do navegador")
		return nil, false
	}
	return sess, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotStaff):
		authz.WriteRejection(w, authz.Forbidden("perfil não pode alternar contexto", ""))
	case errors.Is(err, ErrCompanyNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "empresa não encontrada")
	case errors.Is(err, ErrInvalidMode), errors.Is(err, ErrCompanyRequired), errors.Is(err, ErrCompanyNotAllowed):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("switch acting context", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
	}
}
