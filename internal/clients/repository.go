package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nixcon/nixcon/internal/platform/db"
)

// RepositoryPort defines client persistence. Every call is scoped to a company.
type RepositoryPort interface {
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Client, int, error)
	Get(ctx context.Context, companyID, id int64) (Client, error)
	Create(ctx context.Context, c Client) (Client, error)
	Update(ctx context.Context, c Client) (Client, error)
	Delete(ctx context.Context, companyID, id int64) error
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

const clientColumns = `id, company_id, name, document, email, phone, created_at, updated_at`

func (r *Repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Client, int, error) {
	args := []any{companyID}
	clause := " WHERE company_id = $1"
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		clause += " AND (name ILIKE $2 OR document LIKE $2)"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM clients%s ORDER BY name, id LIMIT $%d OFFSET $%d`, clientColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, companyID, id int64) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE company_id = $1 AND id = $2`, companyID, id))
}

func (r *Repository) Create(ctx context.Context, c Client) (Client, error) {
	created, err := scanClient(r.pool.QueryRow(ctx, `INSERT INTO clients (company_id, name, document, email, phone)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+clientColumns,
		c.CompanyID, c.Name, c.Document, c.Email, c.Phone))
	if db.IsUniqueViolation(err) {
		return Client{}, ErrDuplicateDocument
	}
	return created, err
}

func (r *Repository) Update(ctx context.Context, c Client) (Client, error) {
	updated, err := scanClient(r.pool.QueryRow(ctx, `UPDATE clients SET name = $3, document = $4, email = $5, phone = $6,
		updated_at = now() WHERE company_id = $1 AND id = $2 RETURNING `+clientColumns,
		c.CompanyID, c.ID, c.Name, c.Document, c.Email, c.Phone))
	if db.IsUniqueViolation(err) {
		return Client{}, ErrDuplicateDocument
	}
	return updated, err
}

func (r *Repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE company_id = $1 AND id = $2`, companyID, id)
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
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients WHERE company_id = $1`, companyID).Scan(&n)
	return n, err
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Document, &c.Email, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrNotFound
	}
	return c, err
}
