package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines task persistence.
type RepositoryPort interface {
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Task, int, error)
	Get(ctx context.Context, companyID, id int64) (Task, error)
	Create(ctx context.Context, t Task) (Task, error)
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, companyID, id int64) error
	Stats(ctx context.Context, companyID int64, today Date) (Stats, error)
	ListDueBetween(ctx context.Context, from, to Date) ([]Reminder, error)
}

// Repository is the PostgreSQL implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const taskColumns = `t.id, t.company_id, t.title, t.description, t.status, t.due_date, t.assignee_email,
	COALESCE(t.created_by, 0), t.completed_at, t.created_at, t.updated_at`

func (r *Repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Task, int, error) {
	args := []any{companyID}
	clause := " WHERE t.company_id = $1"
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clause += " AND t.status = $2"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks t`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM tasks t%s ORDER BY t.due_date NULLS LAST, t.id LIMIT $%d OFFSET $%d`,
		taskColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, companyID, id int64) (Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.company_id = $1 AND t.id = $2`, companyID, id))
}

func (r *Repository) Create(ctx context.Context, t Task) (Task, error) {
	var createdBy *int64
	if t.CreatedBy > 0 {
		createdBy = &t.CreatedBy
	}
	return scanTask(r.pool.QueryRow(ctx, `INSERT INTO tasks AS t (company_id, title, description, status, due_date,
		assignee_email, created_by, completed_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+taskColumns,
		t.CompanyID, t.Title, t.Description, string(t.Status), dueArg(t.DueDate), t.AssigneeEmail, createdBy, t.CompletedAt))
}

func (r *Repository) Update(ctx context.Context, t Task) (Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `UPDATE tasks AS t SET title = $3, description = $4, status = $5, due_date = $6,
		assignee_email = $7, completed_at = $8, updated_at = now()
		WHERE t.company_id = $1 AND t.id = $2 RETURNING `+taskColumns,
		t.CompanyID, t.ID, t.Title, t.Description, string(t.Status), dueArg(t.DueDate), t.AssigneeEmail, t.CompletedAt))
}

func (r *Repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE company_id = $1 AND id = $2`, companyID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Stats(ctx context.Context, companyID int64, today Date) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `SELECT
			COUNT(*) FILTER (WHERE status <> 'concluida'),
			COUNT(*) FILTER (WHERE status <> 'concluida' AND due_date < $2)
		FROM tasks WHERE company_id = $1`, companyID, today.Time).Scan(&s.Open, &s.Overdue)
	return s, err
}

// ListDueBetween returns open tasks of every company due in [from, to].
func (r *Repository) ListDueBetween(ctx context.Context, from, to Date) ([]Reminder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+`, c.razao_social
		FROM tasks t JOIN companies c ON c.id = t.company_id
		WHERE t.status <> 'concluida' AND t.due_date BETWEEN $1 AND $2
		ORDER BY t.due_date, t.id`, from.Time, to.Time)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var rem Reminder
		rem.Task, err = scanTaskWith(rows, &rem.CompanyName)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func dueArg(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

func scanTask(row pgx.Row) (Task, error) {
	return scanTaskWith(row)
}

func scanTaskWith(row pgx.Row, extra ...any) (Task, error) {
	var (
		t      Task
		status string
		due    *time.Time
	)
	dest := append([]any{&t.ID, &t.CompanyID, &t.Title, &t.Description, &status, &due, &t.AssigneeEmail,
		&t.CreatedBy, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	t.Status = Status(status)
	if due != nil {
		d := NewDate(*due)
		t.DueDate = &d
	}
	return t, nil
}
