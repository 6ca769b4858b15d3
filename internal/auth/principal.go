package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/shared"
)

// OverrideSource supplies the custom permission map of a user.
type OverrideSource interface {
	Overrides(ctx context.Context, userID int64) (authz.Overrides, error)
}

// PrincipalResolver attaches an authz.Principal to requests that carry a
// valid bearer token or an authenticated session. Requests without either
// pass through anonymous; the guards decide what that means.
type PrincipalResolver struct {
	Service   *Service
	Tokens    *TokenIssuer
	Overrides OverrideSource
	Logger    *slog.Logger
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

// Middleware resolves the principal.
func (pr *PrincipalResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var (
			userID int64
			sess   = shared.SessionFromContext(ctx)
			bearer bool
		)
		if raw, ok := BearerToken(r); ok {
			bearer = true
			claims, err := pr.Tokens.Parse(raw)
			if err == nil {
				userID, err = claims.UserID()
			}
			if err != nil {
				pr.logDebug("bearer token rejected", slog.Any("error", err))
			}
		} else if sess != nil && sess.User() != "" {
			id, err := strconv.ParseInt(sess.User(), 10, 64)
			if err == nil && id > 0 {
				userID = id
			}
		}
		if userID == 0 {
			next.ServeHTTP(w, r)
			return
		}

		principal, err := pr.resolve(ctx, userID)
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				if pr.Logger != nil {
					pr.Logger.Error("resolve principal", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			// Deleted or deactivated account: drop the stale session login.
			if !bearer && sess != nil {
				sess.SetUser("")
				sess.ClearActing()
			}
			next.ServeHTTP(w, r)
			return
		}
		if !bearer {
			principal.Acting = actingFromSession(principal, sess)
		}
		next.ServeHTTP(w, r.WithContext(authz.ContextWithPrincipal(ctx, principal)))
	})
}

func (pr *PrincipalResolver) resolve(ctx context.Context, userID int64) (*authz.Principal, error) {
	user, err := pr.Service.ActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	principal := &authz.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		Acting:    DefaultActing(user.Role, user.CompanyID),
	}
	if pr.Overrides != nil {
		overrides, err := pr.Overrides.Overrides(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		principal.Overrides = overrides
	}
	return principal, nil
}

// DefaultActing is the acting context of a session that never switched.
func DefaultActing(role authz.Role, companyID int64) authz.ActingContext {
	mode := authz.DefaultViewMode(role)
	if mode == authz.ViewEmpresa {
		return authz.ActingContext{Mode: mode, CompanyID: companyID}
	}
	return authz.ActingContext{Mode: mode}
}

// actingFromSession restores a staff member's switched context. Other roles
// cannot switch, so whatever the session holds is ignored for them.
func actingFromSession(p *authz.Principal, sess *shared.Session) authz.ActingContext {
	if sess == nil || !p.IsStaff() {
		return p.Acting
	}
	mode, companyID := sess.Acting()
	vm := authz.ViewMode(mode)
	if !vm.Valid() {
		return p.Acting
	}
	if vm == authz.ViewEmpresa {
		if companyID <= 0 {
			return p.Acting
		}
		return authz.ActingContext{Mode: vm, CompanyID: companyID}
	}
	return authz.ActingContext{Mode: vm}
}

func (pr *PrincipalResolver) logDebug(msg string, attrs ...any) {
	if pr.Logger != nil {
		pr.Logger.Debug(msg, attrs...)
	}
}
