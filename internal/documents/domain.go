// Package documents keeps the metadata of files exchanged between the office
// and its client companies.
package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the document does not exist in the company.
	ErrNotFound = errors.New("documents: not found")
	// ErrInvalidCategory is returned for unknown categories.
	ErrInvalidCategory = errors.New("documents: invalid category")
)

// Category groups documents by accounting area.
type Category string

const (
	CategoryFiscal     Category = "fiscal"
	CategoryContabil   Category = "contabil"
	CategoryFolha      Category = "folha"
	CategorySocietario Category = "societario"
	CategoryFinanceiro Category = "financeiro"
	CategoryOutros     Category = "outros"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFiscal, CategoryContabil, CategoryFolha, CategorySocietario, CategoryFinanceiro, CategoryOutros:
		return true
	}
	return false
}

// Document is the stored metadata of one file.
type Document struct {
	ID          uuid.UUID `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	Category    Category  `json:"category"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StorageKey  string    `json:"storage_key"`
	UploadedBy  int64     `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ListFilter narrows document listings of one company.
type ListFilter struct {
	Category *Category
	Limit    int
	Offset   int
}

// RegisterRequest is the payload of POST .../documentos.
type RegisterRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Category    Category `json:"category" validate:"required,oneof=fiscal contabil folha societario financeiro outros"`
	ContentType string   `json:"content_type" validate:"omitempty,max=127"`
	SizeBytes   int64    `json:"size_bytes" validate:"gte=0"`
}
