package db

import (
	"context"
	"database/sql"
)

const chunkColumns = `id, task_id, variant, unit, size, min_size, max_size, ratings, block_id, date, recurring, status, created_at`

func scanChunk(row interface{ Scan(...any) error }) (Chunk, error) {
	var c Chunk
	err := row.Scan(
		&c.ID,
		&c.TaskID,
		&c.Variant,
		&c.Unit,
		&c.Size,
		&c.MinSize,
		&c.MaxSize,
		&c.Ratings,
		&c.BlockID,
		&c.Date,
		&c.Recurring,
		&c.Status,
		&c.CreatedAt,
	)
	return c, err
}

func (q *Queries) listChunks(ctx context.Context, query string, args ...any) ([]Chunk, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getChunk = `SELECT ` + chunkColumns + ` FROM chunks WHERE id = ?`

func (q *Queries) GetChunk(ctx context.Context, id string) (Chunk, error) {
	return scanChunk(q.db.QueryRowContext(ctx, getChunk, id))
}

const listChunks = `SELECT ` + chunkColumns + ` FROM chunks ORDER BY date, created_at, id`

func (q *Queries) ListChunks(ctx context.Context) ([]Chunk, error) {
	return q.listChunks(ctx, listChunks)
}

const listChunksByTask = `SELECT ` + chunkColumns + ` FROM chunks WHERE task_id = ? ORDER BY date, created_at, id`

func (q *Queries) ListChunksByTask(ctx context.Context, taskID int64) ([]Chunk, error) {
	return q.listChunks(ctx, listChunksByTask, taskID)
}

const listChunksByDate = `SELECT ` + chunkColumns + ` FROM chunks WHERE date = ? ORDER BY created_at, id`

func (q *Queries) ListChunksByDate(ctx context.Context, date string) ([]Chunk, error) {
	return q.listChunks(ctx, listChunksByDate, date)
}

const upsertChunk = `
INSERT INTO chunks (id, task_id, variant, unit, size, min_size, max_size, ratings, block_id, date, recurring, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	task_id = excluded.task_id,
	variant = excluded.variant,
	unit = excluded.unit,
	size = excluded.size,
	min_size = excluded.min_size,
	max_size = excluded.max_size,
	ratings = excluded.ratings,
	block_id = excluded.block_id,
	date = excluded.date,
	recurring = excluded.recurring,
	status = excluded.status`

type UpsertChunkParams struct {
	ID        string
	TaskID    int64
	Variant   string
	Unit      string
	Size      float64
	MinSize   float64
	MaxSize   float64
	Ratings   sql.NullString
	BlockID   sql.NullInt64
	Date      string
	Recurring int64
	Status    string
	CreatedAt int64
}

func (q *Queries) UpsertChunk(ctx context.Context, arg UpsertChunkParams) error {
	_, err := q.db.ExecContext(ctx, upsertChunk,
		arg.ID,
		arg.TaskID,
		arg.Variant,
		arg.Unit,
		arg.Size,
		arg.MinSize,
		arg.MaxSize,
		arg.Ratings,
		arg.BlockID,
		arg.Date,
		arg.Recurring,
		arg.Status,
		arg.CreatedAt,
	)
	return err
}

const deleteChunk = `DELETE FROM chunks WHERE id = ?`

func (q *Queries) DeleteChunk(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteChunk, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteChunksByTask = `DELETE FROM chunks WHERE task_id = ?`

func (q *Queries) DeleteChunksByTask(ctx context.Context, taskID int64) error {
	_, err := q.db.ExecContext(ctx, deleteChunksByTask, taskID)
	return err
}
