package clients

import (
	"context"
	"strings"

	"github.com/nixcon/nixcon/internal/platform/validation"
)

// Service handles client business rules.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Client, int, error) {
	return s.repo.List(ctx, companyID, filter)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Client, error) {
	return s.repo.Get(ctx, companyID, id)
}

// Create stores a client with its document reduced to digits.
func (s *Service) Create(ctx context.Context, companyID int64, req ClientRequest) (Client, error) {
	c := fromRequest(req)
	c.CompanyID = companyID
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, companyID, id int64, req ClientRequest) (Client, error) {
	c := fromRequest(req)
	c.CompanyID = companyID
	c.ID = id
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	return s.repo.Delete(ctx, companyID, id)
}

// Count returns the number of clients of a company.
func (s *Service) Count(ctx context.Context, companyID int64) (int, error) {
	return s.repo.Count(ctx, companyID)
}

func fromRequest(req ClientRequest) Client {
	return Client{
		Name:     strings.TrimSpace(req.Name),
		Document: validation.Digits(req.Document),
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:    strings.TrimSpace(req.Phone),
	}
}
