package authz

import "context"

// ViewMode is the portal perspective a session is working in.
type ViewMode string

const (
	ViewEscritorio ViewMode = "escritorio"
	ViewEmpresa    ViewMode = "empresa"
	ViewContador   ViewMode = "contador"
	ViewExterno    ViewMode = "externo"
)

// Valid reports whether v is a known view mode.
func (v ViewMode) Valid() bool {
	switch v {
	case ViewEscritorio, ViewEmpresa, ViewContador, ViewExterno:
		return true
	}
	return false
}

// DefaultViewMode is the mode a fresh session of the role starts in.
func DefaultViewMode(role Role) ViewMode {
	switch role {
	case RoleSystemAdmin, RoleAccountingOffice:
		return ViewEscritorio
	case RoleClientCompany:
		return ViewEmpresa
	default:
		return ViewExterno
	}
}

// ActingContext is the company an office session is currently working on
// behalf of. CompanyID is zero unless Mode is ViewEmpresa.
type ActingContext struct {
	Mode      ViewMode `json:"view_mode"`
	CompanyID int64    `json:"company_id,omitempty"`
}

// Principal describes the authenticated actor of a request.
type Principal struct {
	UserID    int64         `json:"user_id"`
	Email     string        `json:"email"`
	Role      Role          `json:"role"`
	CompanyID int64         `json:"company_id,omitempty"`
	Overrides Overrides     `json:"overrides,omitempty"`
	Acting    ActingContext `json:"acting"`
}

// IsStaff reports whether the principal belongs to the platform or the office.
func (p *Principal) IsStaff() bool {
	return p != nil && (p.Role == RoleSystemAdmin || p.Role == RoleAccountingOffice)
}

// EffectiveCompanyID is the company whose data the session is looking at:
// the acting company for staff, the own company for client-company users.
func (p *Principal) EffectiveCompanyID() int64 {
	if p == nil {
		return 0
	}
	switch p.Role {
	case RoleSystemAdmin, RoleAccountingOffice:
		if p.Acting.Mode == ViewEmpresa {
			return p.Acting.CompanyID
		}
		return 0
	case RoleClientCompany:
		return p.CompanyID
	default:
		return 0
	}
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
