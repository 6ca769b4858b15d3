// Package clients manages the customers registered by each company.
package clients

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the client does not exist in the company.
	ErrNotFound = errors.New("clients: not found")
	// ErrDuplicateDocument indicates the CPF/CNPJ is already registered for the company.
	ErrDuplicateDocument = errors.New("clients: document already registered")
)

// Client is a customer of a company, identified by CPF or CNPJ.
type Client struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows client listings of one company.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

// ClientRequest is the payload of create and update.
type ClientRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Document string `json:"document" validate:"required,cpfcnpj"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Phone    string `json:"phone" validate:"max=20"`
}
