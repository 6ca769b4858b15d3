// Package companies manages the client companies served by the accounting
// office.
package companies

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the company does not exist.
	ErrNotFound = errors.New("companies: not found")
	// ErrDuplicateCNPJ indicates another company holds the CNPJ.
	ErrDuplicateCNPJ = errors.New("companies: cnpj already registered")
	// ErrInvalidCNPJ is returned for malformed CNPJ numbers.
	ErrInvalidCNPJ = errors.New("companies: invalid cnpj")
)

// Regime is the tax regime a company files under.
type Regime string

const (
	RegimeSimplesNacional Regime = "simples_nacional"
	RegimeLucroPresumido  Regime = "lucro_presumido"
	RegimeLucroReal       Regime = "lucro_real"
)

// Company is a client company of the office.
type Company struct {
	ID           int64     `json:"id"`
	CNPJ         string    `json:"cnpj"`
	RazaoSocial  string    `json:"razao_social"`
	NomeFantasia string    `json:"nome_fantasia"`
	Email        string    `json:"email"`
	Regime       Regime    `json:"regime"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilters narrows company listings.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
	// IDs restricts the listing to the given companies when non-nil.
	IDs      []int64
	IsActive *bool
}

// CompanyRequest is the payload of create and update.
type CompanyRequest struct {
	CNPJ         string `json:"cnpj" validate:"required,cnpj"`
	RazaoSocial  string `json:"razao_social" validate:"required,max=200"`
	NomeFantasia string `json:"nome_fantasia" validate:"max=200"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	Regime       Regime `json:"regime" validate:"omitempty,oneof=simples_nacional lucro_presumido lucro_real"`
	IsActive     *bool  `json:"is_active"`
}
