package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nixcon/nixcon/internal/platform/httpx"
	"github.com/nixcon/nixcon/internal/shared"
)

// AuditRecorder persists denied decisions.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DecisionObserver counts authorization outcomes.
type DecisionObserver interface {
	ObserveAuthzDecision(scope, outcome string)
}

// Guard wires authorization gates for HTTP handlers. A nil Matrix means the
// default table.
type Guard struct {
	Matrix  *Matrix
	Logger  *slog.Logger
	Audit   AuditRecorder
	Metrics DecisionObserver
}

func (g Guard) matrix() *Matrix {
	if g.Matrix != nil {
		return g.Matrix
	}
	return &defaultMatrix
}

// CheckModule decides module access for the principal.
func (g Guard) CheckModule(p *Principal, module Module, min AccessLevel) *Rejection {
	if p == nil {
		return Unauthenticated("autenticação necessária")
	}
	if !g.matrix().HasModuleAccess(p.Role, module, min, p.Overrides) {
		return Forbidden("nível de acesso insuficiente", fmt.Sprintf("module=%s level=%s", module, min))
	}
	return nil
}

// CheckRoles decides whether the principal's role is in the allowed set.
func CheckRoles(p *Principal, allowed ...Role) *Rejection {
	if p == nil {
		return Unauthenticated("autenticação necessária")
	}
	for _, role := range allowed {
		if p.Role == role {
			return nil
		}
	}
	return Forbidden("perfil sem permissão para este recurso", "role="+p.Role.String())
}

// CheckEmpresaContext enforces tenant isolation for a requested company id.
// Staff bypass; client-company users only reach their own company; end
// clients are always rejected because no client-to-company linkage exists.
func CheckEmpresaContext(p *Principal, requested int64) *Rejection {
	if p == nil {
		return Unauthenticated("autenticação necessária")
	}
	switch p.Role {
	case RoleSystemAdmin, RoleAccountingOffice:
		return nil
	case RoleClientCompany:
		if p.CompanyID != 0 && p.CompanyID == requested {
			return nil
		}
		return Forbidden("acesso restrito à própria empresa", "empresa="+strconv.FormatInt(requested, 10))
	default:
		return Forbidden("perfil sem acesso a dados de empresa", "role="+p.Role.String())
	}
}

// RequireModuleAccess rejects requests whose principal lacks min on module.
func (g Guard) RequireModuleAccess(module Module, min AccessLevel) func(http.Handler) http.Handler {
	scope := module.String()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rej := g.CheckModule(PrincipalFromContext(r.Context()), module, min); rej != nil {
				g.deny(w, r, scope, rej)
				return
			}
			g.allow(scope)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets system administrators through.
func (g Guard) RequireAdmin(next http.Handler) http.Handler {
	return g.requireRoles("role:admin", next, RoleSystemAdmin)
}

// RequireEscritorio lets accounting-office staff and administrators through.
func (g Guard) RequireEscritorio(next http.Handler) http.Handler {
	return g.requireRoles("role:escritorio", next, RoleAccountingOffice, RoleSystemAdmin)
}

// RequireEmpresa lets everyone except end clients through.
func (g Guard) RequireEmpresa(next http.Handler) http.Handler {
	return g.requireRoles("role:empresa", next, RoleClientCompany, RoleAccountingOffice, RoleSystemAdmin)
}

func (g Guard) requireRoles(scope string, next http.Handler, allowed ...Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rej := CheckRoles(PrincipalFromContext(r.Context()), allowed...); rej != nil {
			g.deny(w, r, scope, rej)
			return
		}
		g.allow(scope)
		next.ServeHTTP(w, r)
	})
}

// RequireEmpresaContext guards routes carrying a company id in the URL
// parameter paramName.
func (g Guard) RequireEmpresaContext(paramName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				g.deny(w, r, "empresa", Unauthenticated("autenticação necessária"))
				return
			}
			raw := strings.TrimSpace(chi.URLParam(r, paramName))
			requested, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || requested <= 0 {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador de empresa inválido")
				return
			}
			if rej := CheckEmpresaContext(p, requested); rej != nil {
				g.deny(w, r, "empresa", rej)
				return
			}
			g.allow("empresa")
			next.ServeHTTP(w, r)
		})
	}
}

func (g Guard) allow(scope string) {
	if g.Metrics != nil {
		g.Metrics.ObserveAuthzDecision(scope, "allowed")
	}
}

func (g Guard) deny(w http.ResponseWriter, r *http.Request, scope string, rej *Rejection) {
	outcome := "forbidden"
	if rej.Status() == http.StatusUnauthorized {
		outcome = "unauthenticated"
	}
	if g.Metrics != nil {
		g.Metrics.ObserveAuthzDecision(scope, outcome)
	}
	p := PrincipalFromContext(r.Context())
	if g.Logger != nil {
		attrs := []any{
			slog.String("scope", scope),
			slog.String("path", r.URL.Path),
			slog.String("reason", rej.Message),
		}
		if p != nil {
			attrs = append(attrs, slog.Int64("user_id", p.UserID), slog.String("role", p.Role.String()))
		}
		g.Logger.Warn("authz denied", attrs...)
	}
	if g.Audit != nil && p != nil {
		entry := shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "authz.denied",
			Entity:   "route",
			EntityID: r.Method + " " + r.URL.Path,
			Meta:     map[string]any{"scope": scope, "reason": rej.Message, "details": rej.Details},
		}
		if err := g.Audit.Record(r.Context(), entry); err != nil && g.Logger != nil {
			g.Logger.Error("authz audit", slog.Any("error", err))
		}
	}
	WriteRejection(w, rej)
}
