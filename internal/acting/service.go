// Package acting lets office staff choose the company they are working on
// behalf of. The choice lives in the session and is restored onto the
// principal on every request.
package acting

import (
	"context"
	"errors"

	"github.com/nixcon/nixcon/internal/authz"
)

var (
	// ErrNotStaff is returned when a non-office session tries to switch.
	ErrNotStaff = errors.New("acting: only office staff may switch context")
	// ErrInvalidMode is returned for unknown or non-selectable view modes.
	ErrInvalidMode = errors.New("acting: invalid view mode")
	// ErrCompanyRequired is returned when empresa mode has no company.
	ErrCompanyRequired = errors.New("acting: company_id required for empresa mode")
	// ErrCompanyNotAllowed is returned when a company is sent with another mode.
	ErrCompanyNotAllowed = errors.New("acting: company_id only allowed in empresa mode")
	// ErrCompanyNotFound is returned when the target company does not exist.
	ErrCompanyNotFound = errors.New("acting: company not found")
)

// CompanyDirectory answers whether a company exists.
type CompanyDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service validates acting context switches.
type Service struct {
	companies CompanyDirectory
}

// NewService builds a Service.
func NewService(companies CompanyDirectory) *Service {
	return &Service{companies: companies}
}

// Switch validates the requested context for p and returns it.
func (s *Service) Switch(ctx context.Context, p *authz.Principal, mode authz.ViewMode, companyID int64) (authz.ActingContext, error) {
	if !p.IsStaff() {
		return authz.ActingContext{}, ErrNotStaff
	}
	switch mode {
	case authz.ViewEscritorio, authz.ViewContador:
		if companyID != 0 {
			return authz.ActingContext{}, ErrCompanyNotAllowed
		}
		return authz.ActingContext{Mode: mode}, nil
	case authz.ViewEmpresa:
		if companyID <= 0 {
			return authz.ActingContext{}, ErrCompanyRequired
		}
		ok, err := s.companies.Exists(ctx, companyID)
		if err != nil {
			return authz.ActingContext{}, err
		}
		if !ok {
			return authz.ActingContext{}, ErrCompanyNotFound
		}
		return authz.ActingContext{Mode: mode, CompanyID: companyID}, nil
	default:
		return authz.ActingContext{}, ErrInvalidMode
	}
}
