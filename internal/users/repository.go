package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nixcon/nixcon/internal/authz"
	"github.com/nixcon/nixcon/internal/platform/db"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (User, error)
	ListOverrides(ctx context.Context, userID int64) (authz.Overrides, error)
	ReplaceOverrides(ctx context.Context, userID int64, overrides authz.Overrides) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, role, COALESCE(company_id, 0), is_active, last_login_at, created_at, updated_at`

// ListUsers returns one page of users and the total matching count.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Role != nil {
		args = append(args, filter.Role.String())
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.CompanyID > 0 {
		args = append(args, filter.CompanyID)
		where = append(where, fmt.Sprintf("company_id = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY name, id LIMIT $%d OFFSET $%d`, userColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	var companyID *int64
	if params.CompanyID > 0 {
		companyID = &params.CompanyID
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, company_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+userColumns,
		strings.ToLower(params.Email), params.Name, params.PasswordHash, params.Role.String(), companyID)
	user, err := scanUser(row)
	switch {
	case db.IsUniqueViolation(err):
		return User{}, ErrDuplicateEmail
	case db.IsForeignKeyViolation(err):
		return User{}, ErrCompanyNotFound
	}
	return user, err
}

// ListOverrides loads the custom permission map of a user.
func (r *Repository) ListOverrides(ctx context.Context, userID int64) (authz.Overrides, error) {
	rows, err := r.pool.Query(ctx, `SELECT module, level FROM user_permission_overrides WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides := authz.Overrides{}
	for rows.Next() {
		var (
			name  string
			level int16
		)
		if err := rows.Scan(&name, &level); err != nil {
			return nil, err
		}
		module, err := authz.ParseModule(name)
		if err != nil {
			// Modules removed from the enumeration are ignored, not fatal.
			continue
		}
		if level < 0 || level > int16(authz.AccessAdmin) {
			continue
		}
		overrides[module] = authz.AccessLevel(level)
	}
	return overrides, rows.Err()
}

// ReplaceOverrides swaps the override set of a user atomically.
func (r *Repository) ReplaceOverrides(ctx context.Context, userID int64, overrides authz.Overrides) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permission_overrides WHERE user_id = $1`, userID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for module, level := range overrides {
			batch.Queue(`INSERT INTO user_permission_overrides (user_id, module, level) VALUES ($1, $2, $3)`,
				userID, module.String(), int16(level))
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user User
		role string
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.CompanyID, &user.IsActive,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if user.Role, err = authz.ParseRole(role); err != nil {
		return User{}, err
	}
	return user, nil
}

var _ RepositoryPort = (*Repository)(nil)
