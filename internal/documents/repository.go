package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines document metadata persistence.
type RepositoryPort interface {
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Document, int, error)
	Get(ctx context.Context, companyID int64, id uuid.UUID) (Document, error)
	Create(ctx context.Context, d Document) (Document, error)
	Delete(ctx context.Context, companyID int64, id uuid.UUID) error
	Count(ctx context.Context, companyID int64) (int, error)
}

// Repository is the PostgreSQL implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, company_id, name, category, content_type, size_bytes, storage_key, COALESCE(uploaded_by, 0), created_at`

func (r *Repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Document, int, error) {
	args := []any{companyID}
	clause := " WHERE company_id = $1"
	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		clause += " AND category = $2"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM documents%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		documentColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, companyID int64, id uuid.UUID) (Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE company_id = $1 AND id = $2`, companyID, id))
}

func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	var uploadedBy *int64
	if d.UploadedBy > 0 {
		uploadedBy = &d.UploadedBy
	}
	return scanDocument(r.pool.QueryRow(ctx, `INSERT INTO documents (id, company_id, name, category, content_type, size_bytes, storage_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+documentColumns,
		d.ID, d.CompanyID, d.Name, string(d.Category), d.ContentType, d.SizeBytes, d.StorageKey, uploadedBy))
}

func (r *Repository) Delete(ctx context.Context, companyID int64, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE company_id = $1`, companyID).Scan(&n)
	return n, err
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		d        Document
		category string
	)
	err := row.Scan(&d.ID, &d.CompanyID, &d.Name, &category, &d.ContentType, &d.SizeBytes, &d.StorageKey, &d.UploadedBy, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	d.Category = Category(category)
	return d, nil
}
