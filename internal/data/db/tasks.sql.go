package db

import (
	"context"
	"database/sql"
)

const taskColumns = `id, title, priority, categories, due_at, completed_at, recurrence, recurrence_count,
	estimate, logged, count_required, count_completed, chunk_preference, min_chunk, max_chunk,
	status, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Priority,
		&t.Categories,
		&t.DueAt,
		&t.CompletedAt,
		&t.Recurrence,
		&t.RecurrenceCount,
		&t.Estimate,
		&t.Logged,
		&t.CountRequired,
		&t.CountCompleted,
		&t.ChunkPreference,
		&t.MinChunk,
		&t.MaxChunk,
		&t.Status,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

func (q *Queries) listTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

// TaskParams carries the writable task columns for create and update.
type TaskParams struct {
	Title           string
	Priority        int64
	Categories      sql.NullString
	DueAt           sql.NullInt64
	CompletedAt     sql.NullInt64
	Recurrence      sql.NullString
	RecurrenceCount int64
	Estimate        float64
	Logged          float64
	CountRequired   float64
	CountCompleted  float64
	ChunkPreference string
	MinChunk        float64
	MaxChunk        float64
	Status          string
	UpdatedAt       int64
}

func (p TaskParams) args() []any {
	return []any{
		p.Title,
		p.Priority,
		p.Categories,
		p.DueAt,
		p.CompletedAt,
		p.Recurrence,
		p.RecurrenceCount,
		p.Estimate,
		p.Logged,
		p.CountRequired,
		p.CountCompleted,
		p.ChunkPreference,
		p.MinChunk,
		p.MaxChunk,
		p.Status,
		p.UpdatedAt,
	}
}

const createTask = `
INSERT INTO tasks (title, priority, categories, due_at, completed_at, recurrence, recurrence_count,
	estimate, logged, count_required, count_completed, chunk_preference, min_chunk, max_chunk,
	status, updated_at, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateTask(ctx context.Context, arg TaskParams, createdAt int64) (int64, error) {
	args := append(arg.args(), createdAt)
	var id int64
	err := q.db.QueryRowContext(ctx, createTask, args...).Scan(&id)
	return id, err
}

const getTask = `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

func (q *Queries) GetTask(ctx context.Context, id int64) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, getTask, id))
}

const listTasks = `SELECT ` + taskColumns + ` FROM tasks ORDER BY priority DESC, id`

func (q *Queries) ListTasks(ctx context.Context) ([]Task, error) {
	return q.listTasks(ctx, listTasks)
}

const listTasksByStatus = `SELECT ` + taskColumns + ` FROM tasks WHERE status = ? ORDER BY priority DESC, id`

func (q *Queries) ListTasksByStatus(ctx context.Context, status string) ([]Task, error) {
	return q.listTasks(ctx, listTasksByStatus, status)
}

const listRecurringTasks = `SELECT ` + taskColumns + ` FROM tasks WHERE recurrence IS NOT NULL ORDER BY priority DESC, id`

func (q *Queries) ListRecurringTasks(ctx context.Context) ([]Task, error) {
	return q.listTasks(ctx, listRecurringTasks)
}

const listOpenTasks = `SELECT ` + taskColumns + ` FROM tasks
WHERE status IN ('not_started', 'in_progress') ORDER BY priority DESC, id`

func (q *Queries) ListOpenTasks(ctx context.Context) ([]Task, error) {
	return q.listTasks(ctx, listOpenTasks)
}

const updateTask = `
UPDATE tasks
SET title = ?, priority = ?, categories = ?, due_at = ?, completed_at = ?, recurrence = ?, recurrence_count = ?,
	estimate = ?, logged = ?, count_required = ?, count_completed = ?, chunk_preference = ?, min_chunk = ?,
	max_chunk = ?, status = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateTask(ctx context.Context, id int64, arg TaskParams) (int64, error) {
	args := append(arg.args(), id)
	result, err := q.db.ExecContext(ctx, updateTask, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTask = `DELETE FROM tasks WHERE id = ?`

func (q *Queries) DeleteTask(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTask, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
