package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nixcon/nixcon/internal/auth"
	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/shared"
)

// Invalidator drops cached permission data for a user.
type Invalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	matrix *authz.Matrix
	cache  Invalidator
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service. cache and audit may be nil.
func NewService(repo RepositoryPort, matrix *authz.Matrix, cache Invalidator, audit AuditRecorder, logger *slog.Logger) *Service {
	if matrix == nil {
		m := authz.DefaultMatrix()
		matrix = &m
	}
	return &Service{repo: repo, matrix: matrix, cache: cache, audit: audit, logger: logger}
}

// ListUsers returns a page of users. Staff see everyone, company users see
// their own company and any other actor sees only itself.
func (s *Service) ListUsers(ctx context.Context, actor *authz.Principal, filter ListFilter) ([]User, int, error) {
	switch {
	case actor.IsStaff():
		return s.repo.ListUsers(ctx, filter)
	case actor != nil && actor.CompanyID > 0:
		filter.CompanyID = actor.CompanyID
		return s.repo.ListUsers(ctx, filter)
	case actor == nil:
		return nil, 0, nil
	}
	self, err := s.repo.GetUser(ctx, actor.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	if (filter.Role != nil && self.Role != *filter.Role) || (filter.CompanyID > 0 && self.CompanyID != filter.CompanyID) ||
		filter.Offset > 0 {
		return nil, 1, nil
	}
	return []User{self}, 1, nil
}

// GetUser returns a user by id. Users outside the actor's reach read as
// ErrNotFound.
func (s *Service) GetUser(ctx context.Context, actor *authz.Principal, id int64) (User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !canSee(actor, user) {
		return User{}, ErrNotFound
	}
	return user, nil
}

// canSee mirrors the scoping of ListUsers for a single user.
func canSee(actor *authz.Principal, user User) bool {
	switch {
	case actor.IsStaff():
		return true
	case actor == nil:
		return false
	case actor.CompanyID > 0:
		return user.CompanyID == actor.CompanyID
	default:
		return user.ID == actor.UserID
	}
}

// CreateUser validates role/company consistency and stores a new account.
// Only system administrators may create other administrators.
func (s *Service) CreateUser(ctx context.Context, actor *authz.Principal, req CreateUserRequest) (User, error) {
	if !req.Role.Valid() {
		return User{}, authz.ErrUnknownRole
	}
	if req.Role == authz.RoleSystemAdmin && (actor == nil || actor.Role != authz.RoleSystemAdmin) {
		return User{}, ErrRoleEscalation
	}
	switch {
	case req.Role == authz.RoleClientCompany && req.CompanyID <= 0:
		return User{}, ErrCompanyRequired
	case req.Role != authz.RoleClientCompany && req.CompanyID != 0:
		return User{}, ErrCompanyNotAllowed
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.CreateUser(ctx, CreateUserParams{
		Email:        strings.TrimSpace(req.Email),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         req.Role,
		CompanyID:    req.CompanyID,
	})
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.created", user.ID, map[string]any{"role": user.Role.String(), "company_id": user.CompanyID})
	return user, nil
}

// Permissions returns the overrides and effective levels of a user.
func (s *Service) Permissions(ctx context.Context, actor *authz.Principal, id int64) (Permissions, error) {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return Permissions{}, err
	}
	overrides, err := s.repo.ListOverrides(ctx, id)
	if err != nil {
		return Permissions{}, err
	}
	return s.permissionsView(user, overrides), nil
}

// ReplacePermissions replaces the override map of a user and invalidates
// the cached copy.
func (s *Service) ReplacePermissions(ctx context.Context, actor *authz.Principal, id int64, overrides authz.Overrides) (Permissions, error) {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return Permissions{}, err
	}
	for module, level := range overrides {
		if !module.Valid() || !level.Valid() {
			return Permissions{}, authz.ErrUnknownModule
		}
	}
	if err := s.repo.ReplaceOverrides(ctx, id, overrides); err != nil {
		return Permissions{}, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil && s.logger != nil {
			s.logger.Warn("invalidate override cache", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
	s.record(ctx, actor, "user.permissions_replaced", id, map[string]any{"overrides": overrides.Strings()})
	return s.permissionsView(user, overrides), nil
}

func (s *Service) permissionsView(user User, overrides authz.Overrides) Permissions {
	if overrides == nil {
		overrides = authz.Overrides{}
	}
	effective := make(map[string]string)
	for module, level := range s.matrix.Effective(user.Role, overrides) {
		effective[module.String()] = level.String()
	}
	return Permissions{UserID: user.ID, Role: user.Role, Overrides: overrides, Effective: effective}
}

func (s *Service) record(ctx context.Context, actor *authz.Principal, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if actor != nil {
		actorID = actor.UserID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Error("audit user change", slog.String("action", action), slog.Any("error", err))
	}
}

// IsClientError reports whether err is a validation failure of the caller.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCompanyRequired) || errors.Is(err, ErrCompanyNotAllowed) ||
		errors.Is(err, ErrCompanyNotFound) || errors.Is(err, authz.ErrUnknownRole) ||
		errors.Is(err, authz.ErrUnknownModule)
}
