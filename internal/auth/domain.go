// Package auth handles login, bearer tokens and resolution of the request
// principal from either a bearer token or the session cookie.
package auth

import (
	"time"

	"github.com/nixcon/nixcon/internal/authz"
)

// User represents a portal account.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         authz.Role `json:"role"`
	CompanyID    int64      `json:"company_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
