package companies

import (
	"context"
	"strings"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/validation"
)

// Service handles company business rules.
type Service struct {
	repo Repository
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of companies visible to actor. Client-company users
// only ever see their own company.
func (s *Service) List(ctx context.Context, actor *authz.Principal, filters ListFilters) ([]Company, int, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if actor != nil && !actor.IsStaff() {
		filters.IDs = []int64{actor.CompanyID}
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new company with the CNPJ normalized to digits.
func (s *Service) Create(ctx context.Context, req CompanyRequest) (Company, error) {
	c, err := fromRequest(req)
	if err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id int64, req CompanyRequest) (Company, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	c, err := fromRequest(req)
	if err != nil {
		return Company{}, err
	}
	if req.IsActive == nil {
		c.IsActive = current.IsActive
	}
	return s.repo.Update(ctx, id, c)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Exists reports whether a company with id is registered.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.repo.Exists(ctx, id)
}

func fromRequest(req CompanyRequest) (Company, error) {
	if !validation.ValidCNPJ(req.CNPJ) {
		return Company{}, ErrInvalidCNPJ
	}
	c := Company{
		CNPJ:         validation.Digits(req.CNPJ),
		RazaoSocial:  strings.TrimSpace(req.RazaoSocial),
		NomeFantasia: strings.TrimSpace(req.NomeFantasia),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Regime:       req.Regime,
		IsActive:     true,
	}
	if c.Regime == "" {
		c.Regime = RegimeSimplesNacional
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return c, nil
}
