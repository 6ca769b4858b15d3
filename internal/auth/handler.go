package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	tokens         *TokenIssuer
	matrix         *authz.Matrix
	loginLimit     int
	validator      *validator.Validate
}

// NewHandler constructs a Handler. loginLimit caps login attempts per IP
// and minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, csrf *shared.CSRFManager, tokens *TokenIssuer, matrix *authz.Matrix, loginLimit int) *Handler {
	if matrix == nil {
		m := authz.DefaultMatrix()
		matrix = &m
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		csrfManager:    csrf,
		tokens:         tokens,
		matrix:         matrix,
		loginLimit:     loginLimit,
		validator:      validator.New(),
	}
}

// MountRoutes registers the /auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit > 0 {
			r.Use(httprate.LimitByIP(h.loginLimit, time.Minute))
		}
		r.Post("/login", h.handleLogin)
	})
	r.Post("/logout", h.handleLogout)
}

// MountMe registers GET /me.
func (h *Handler) MountMe(r chi.Router) {
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CSRFToken string    `json:"csrf_token,omitempty"`
	User      *User     `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "corpo da requisição inválido")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", httpx.ValidationDetail(err))
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			authz.WriteRejection(w, authz.Unauthenticated(shared.UserSafeMessage(err)))
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", shared.UserSafeMessage(err))
		return
	}

	token, expiresAt, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("issue token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	resp := loginResponse{Token: token, ExpiresAt: expiresAt, User: user}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
			h.logger.Warn("renew session", slog.Any("error", err))
		}
		sess.SetUser(strconv.FormatInt(user.ID, 10))
		sess.ClearActing()
		sess.Delete(shared.CSRFSessionKey)
		if resp.CSRFToken, err = h.csrfManager.EnsureToken(sess); err != nil {
			h.logger.Warn("csrf token", slog.Any("error", err))
		}
	}
	h.logger.Info("login", slog.Int64("user_id", user.ID), slog.String("role", user.Role.String()))
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User               *authz.Principal    `json:"user"`
	Acting             authz.ActingContext `json:"acting"`
	EffectiveCompanyID int64               `json:"effective_company_id,omitempty"`
	Permissions        map[string]string   `json:"permissions"`
	CSRFToken          string              `json:"csrf_token,omitempty"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := authz.PrincipalFromContext(r.Context())
	if p == nil {
		authz.WriteRejection(w, authz.Unauthenticated("autenticação necessária"))
		return
	}
	perms := make(map[string]string)
	for module, level := range h.matrix.Effective(p.Role, p.Overrides) {
		perms[module.String()] = level.String()
	}
	resp := meResponse{
		User:               p,
		Acting:             p.Acting,
		EffectiveCompanyID: p.EffectiveCompanyID(),
		Permissions:        perms,
	}
	if _, bearer := BearerToken(r); !bearer {
		if sess := shared.SessionFromContext(r.Context()); sess != nil {
			resp.CSRFToken, _ = h.csrfManager.EnsureToken(sess)
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
