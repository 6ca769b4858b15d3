package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nixcon/nixcon/internal/platform/db"
)

// Repository defines company persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, id int64, company Company) (Company, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const companyColumns = `id, cnpj, razao_social, nome_fantasia, email, regime, is_active, created_at, updated_at`

// List uses a dynamic query because of the optional filters.
func (r *repository) List(ctx context.Context, filters ListFilters) ([]Company, int, error) {
	var (
		where []string
		args  []any
	)
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(razao_social ILIKE $%d OR nome_fantasia ILIKE $%d OR cnpj LIKE $%d)", n, n, n))
	}
	if filters.IDs != nil {
		args = append(args, filters.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + companyColumns + ` FROM companies` + clause + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.Limit > 0 {
		offset := (filters.Page - 1) * filters.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, filters.Limit, offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	return scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO companies (cnpj, razao_social, nome_fantasia, email, regime, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+companyColumns,
		c.CNPJ, c.RazaoSocial, c.NomeFantasia, c.Email, string(c.Regime), c.IsActive)
	created, err := scanCompany(row)
	if db.IsUniqueViolation(err) {
		return Company{}, ErrDuplicateCNPJ
	}
	return created, err
}

func (r *repository) Update(ctx context.Context, id int64, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `UPDATE companies SET cnpj = $1, razao_social = $2, nome_fantasia = $3,
		email = $4, regime = $5, is_active = $6, updated_at = now() WHERE id = $7 RETURNING `+companyColumns,
		c.CNPJ, c.RazaoSocial, c.NomeFantasia, c.Email, string(c.Regime), c.IsActive, id)
	updated, err := scanCompany(row)
	if db.IsUniqueViolation(err) {
		return Company{}, ErrDuplicateCNPJ
	}
	return updated, err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func scanCompany(row pgx.Row) (Company, error) {
	var (
		c      Company
		regime string
	)
	err := row.Scan(&c.ID, &c.CNPJ, &c.RazaoSocial, &c.NomeFantasia, &c.Email, &regime, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	if err != nil {
		return Company{}, err
	}
	c.Regime = Regime(regime)
	return c, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "cnpj":
		return "cnpj " + dir
	case "created_at":
		return "created_at " + dir + ", id " + dir
	default:
		return "razao_social " + dir + ", id " + dir
	}
}
