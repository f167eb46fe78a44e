package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-tracker/internal/domain"
)

// TaskRepository encapsulates task persistence. No method writes user_id
// after insert.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Task, error)
	ListWithDeadline(ctx context.Context) ([]domain.TaskReminder, error)
	UpdateDescription(ctx context.Context, id, description string) error
	UpdateDeadline(ctx context.Context, id string, deadline *time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// WithTx runs fn against a repository bound to one transaction.
	WithTx(ctx context.Context, fn func(repo TaskRepository) error) error
}

type taskRepository struct {
	db   DBTX
	pool Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool Pool) TaskRepository {
	return &taskRepository{db: pool, pool: pool}
}

const taskColumns = `id, user_id, title, description, status, created_at, deadline`

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (user_id, title, description, status, created_at, deadline)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.CreatedAt,
		task.Deadline,
	).Scan(&task.ID)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id=$1`
	var task domain.Task
	if err := scanTask(r.db.QueryRow(ctx, query, id), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByUser returns the user's tasks newest first. Display order is applied
// by the service.
func (r *taskRepository) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := scanTask(rows, &task); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (r *taskRepository) ListWithDeadline(ctx context.Context) ([]domain.TaskReminder, error) {
	const query = `
        SELECT t.id, t.user_id, t.title, t.description, t.status, t.created_at, t.deadline,
               u.name, u.email
        FROM tasks t
        JOIN users u ON u.id = t.user_id
        WHERE t.deadline IS NOT NULL
        ORDER BY t.deadline ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskReminder
	for rows.Next() {
		var item domain.TaskReminder
		if err := rows.Scan(
			&item.Task.ID,
			&item.Task.UserID,
			&item.Task.Title,
			&item.Task.Description,
			&item.Task.Status,
			&item.Task.CreatedAt,
			&item.Task.Deadline,
			&item.OwnerName,
			&item.OwnerEmail,
		); err != nil {
			return nil, err
		}
		normalizeTask(&item.Task)
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *taskRepository) UpdateDescription(ctx context.Context, id, description string) error {
	return r.execOne(ctx, `UPDATE tasks SET description=$1 WHERE id=$2`, description, id)
}

func (r *taskRepository) UpdateDeadline(ctx context.Context, id string, deadline *time.Time) error {
	return r.execOne(ctx, `UPDATE tasks SET deadline=$1 WHERE id=$2`, deadline, id)
}

func (r *taskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	return r.execOne(ctx, `UPDATE tasks SET status=$1 WHERE id=$2`, status, id)
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM tasks WHERE id=$1`, id)
}

func (r *taskRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *taskRepository) WithTx(ctx context.Context, fn func(repo TaskRepository) error) error {
	if r.pool == nil {
		// already inside a transaction
		return fn(r)
	}
	return WithTx(ctx, r.pool, func(tx DBTX) error {
		return fn(&taskRepository{db: tx})
	})
}

func (r *taskRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTask(row pgx.Row, task *domain.Task) error {
	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.CreatedAt,
		&task.Deadline,
	); err != nil {
		return err
	}
	normalizeTask(task)
	return nil
}

func normalizeTask(task *domain.Task) {
	task.CreatedAt = task.CreatedAt.UTC()
	if task.Deadline != nil {
		d := task.Deadline.UTC()
		task.Deadline = &d
	}
}
