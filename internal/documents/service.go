package documents

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/nixcon/nixcon/internal/authz"
)

const defaultContentType = "application/octet-stream"

// Service handles document metadata.
type Service struct {
	repo  RepositoryPort
	newID func() uuid.UUID
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, newID: uuid.New}
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Document, int, error) {
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, 0, ErrInvalidCategory
	}
	return s.repo.List(ctx, companyID, filter)
}

func (s *Service) Get(ctx context.Context, companyID int64, id uuid.UUID) (Document, error) {
	return s.repo.Get(ctx, companyID, id)
}

// Register records a document and assigns its storage key
// empresas/<company>/<category>/<id>/<name>.
func (s *Service) Register(ctx context.Context, actor *authz.Principal, companyID int64, req RegisterRequest) (Document, error) {
	if !req.Category.Valid() {
		return Document{}, ErrInvalidCategory
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(req.Name), "\\", "/"))
	d := Document{
		ID:          s.newID(),
		CompanyID:   companyID,
		Name:        name,
		Category:    req.Category,
		ContentType: strings.TrimSpace(req.ContentType),
		SizeBytes:   req.SizeBytes,
	}
	if d.ContentType == "" {
		d.ContentType = defaultContentType
	}
	if actor != nil {
		d.UploadedBy = actor.UserID
	}
	d.StorageKey = fmt.Sprintf("empresas/%d/%s/%s/%s", companyID, d.Category, d.ID, d.Name)
	return s.repo.Create(ctx, d)
}

func (s *Service) Delete(ctx context.Context, companyID int64, id uuid.UUID) error {
	return s.repo.Delete(ctx, companyID, id)
}

// Count returns the number of documents of a company.
func (s *Service) Count(ctx context.Context, companyID int64) (int, error) {
	return s.repo.Count(ctx, companyID)
}
