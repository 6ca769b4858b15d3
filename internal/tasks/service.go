package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/nixcon/nixcon/internal/authz"
)

// Service handles task rules.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Task, int, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, companyID, filter)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Task, error) {
	return s.repo.Get(ctx, companyID, id)
}

// Create stores a new task. Status defaults to pendente.
func (s *Service) Create(ctx context.Context, actor *authz.Principal, companyID int64, req TaskRequest) (Task, error) {
	t := Task{CompanyID: companyID, Status: StatusPendente}
	if actor != nil {
		t.CreatedBy = actor.UserID
	}
	if err := s.apply(&t, req); err != nil {
		return Task{}, err
	}
	return s.repo.Create(ctx, t)
}

// Update replaces the editable fields. Moving in or out of concluida sets
// or clears the completion time.
func (s *Service) Update(ctx context.Context, companyID, id int64, req TaskRequest) (Task, error) {
	t, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return Task{}, err
	}
	if err := s.apply(&t, req); err != nil {
		return Task{}, err
	}
	return s.repo.Update(ctx, t)
}

// Complete marks the task concluida. Completing twice keeps the first time.
func (s *Service) Complete(ctx context.Context, companyID, id int64) (Task, error) {
	t, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return Task{}, err
	}
	if t.Status == StatusConcluida {
		return t, nil
	}
	s.setStatus(&t, StatusConcluida)
	return s.repo.Update(ctx, t)
}

func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	return s.repo.Delete(ctx, companyID, id)
}

// Stats counts open and overdue tasks of a company as of today.
func (s *Service) Stats(ctx context.Context, companyID int64) (Stats, error) {
	return s.repo.Stats(ctx, companyID, NewDate(s.now()))
}

// DueWithin lists open tasks of every company due between today and
// today plus days.
func (s *Service) DueWithin(ctx context.Context, days int) ([]Reminder, error) {
	if days < 0 {
		days = 0
	}
	today := NewDate(s.now())
	return s.repo.ListDueBetween(ctx, today, NewDate(today.AddDate(0, 0, days)))
}

func (s *Service) apply(t *Task, req TaskRequest) error {
	t.Title = strings.TrimSpace(req.Title)
	t.Description = strings.TrimSpace(req.Description)
	t.DueDate = req.DueDate
	t.AssigneeEmail = strings.ToLower(strings.TrimSpace(req.AssigneeEmail))
	if req.Status != "" {
		if !req.Status.Valid() {
			return ErrInvalidStatus
		}
		s.setStatus(t, req.Status)
	}
	return nil
}

func (s *Service) setStatus(t *Task, status Status) {
	switch {
	case status == StatusConcluida && t.Status != StatusConcluida:
		now := s.now()
		t.CompletedAt = &now
	case status != StatusConcluida:
		t.CompletedAt = nil
	}
	t.Status = status
}
