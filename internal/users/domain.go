// Package users manages portal accounts and their custom permission
// overrides.
package users

import (
	"errors"
	"time"

	"github.com/nixcon/nixcon/internal/authz"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("users: email already registered")
	// ErrCompanyRequired is returned when a company user has no company.
	ErrCompanyRequired = errors.New("users: company required for role empresa")
	// ErrCompanyNotAllowed is returned when a role other than empresa carries a company.
	ErrCompanyNotAllowed = errors.New("users: only role empresa is linked to a company")
	// ErrCompanyNotFound indicates the referenced company does not exist.
	ErrCompanyNotFound = errors.New("users: company not found")
	// ErrRoleEscalation is returned when an actor grants a role above its own.
	ErrRoleEscalation = errors.New("users: cannot grant role")
)

// User is the management view of an account.
type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        authz.Role `json:"role"`
	CompanyID   int64      `json:"company_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	Role      *authz.Role
	CompanyID int64
	Limit     int
	Offset    int
}

// CreateUserRequest is the payload of POST /api/users.
type CreateUserRequest struct {
	Email     string     `json:"email" validate:"required,email,max=254"`
	Name      string     `json:"name" validate:"required,max=200"`
	Password  string     `json:"password" validate:"required,min=8,max=72"`
	Role      authz.Role `json:"role" validate:"required"`
	CompanyID int64      `json:"company_id" validate:"gte=0"`
}

// CreateUserParams is what the repository persists.
type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         authz.Role
	CompanyID    int64
}

// Permissions describes a user's custom overrides and the resulting levels.
type Permissions struct {
	UserID    int64             `json:"user_id"`
	Role      authz.Role        `json:"role"`
	Overrides authz.Overrides   `json:"overrides"`
	Effective map[string]string `json:"effective"`
}
